// internal/clients/membership_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/membership"
)

type MembershipClient struct {
	base
}

func NewMembershipClient(baseURL string, hc *http.Client) *MembershipClient {
	return &MembershipClient{base: newBase(baseURL, hc)}
}

// RegisterMemberRequest is the body of POST /members.
type RegisterMemberRequest struct {
	Number     int    `json:"number"`
	NationalID string `json:"national_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Status     string `json:"status,omitempty"`
}

func (c *MembershipClient) RegisterMember(ctx context.Context, req RegisterMemberRequest) (*membership.Member, error) {
	var member membership.Member
	if err := c.do(ctx, http.MethodPost, "/members", req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *MembershipClient) GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	var member membership.Member
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%s", id), nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *MembershipClient) ListMembers(ctx context.Context, status membership.Status) ([]membership.Member, error) {
	path := "/members"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var members []membership.Member
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *MembershipClient) AddVessel(ctx context.Context, memberID uuid.UUID, name string, category membership.VesselCategory, feet decimal.Decimal) (*membership.Vessel, error) {
	req := map[string]any{"name": name, "category": category, "length_feet": feet}
	var vessel membership.Vessel
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/vessels", memberID), req, &vessel); err != nil {
		return nil, err
	}
	return &vessel, nil
}

// RecordVisit registers guests on date (YYYY-MM-DD).
func (c *MembershipClient) RecordVisit(ctx context.Context, memberID uuid.UUID, date string, visitors int) (*membership.Visit, error) {
	req := map[string]any{"date": date, "visitors": visitors}
	var visit membership.Visit
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/visits", memberID), req, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (c *MembershipClient) ListVessels(ctx context.Context, memberID uuid.UUID) ([]membership.Vessel, error) {
	var vessels []membership.Vessel
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%s/vessels", memberID), nil, &vessels); err != nil {
		return nil, err
	}
	return vessels, nil
}

func (c *MembershipClient) ListVisits(ctx context.Context, memberID uuid.UUID, from, to string) ([]membership.Visit, error) {
	var visits []membership.Visit
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%s/visits", memberID)+rangeQuery("", from, to), nil, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}
