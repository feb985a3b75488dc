// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clubledger/internal/httpx"
	"clubledger/internal/server"
)

func main() {
	ctx := context.Background()
	rt, err := server.Bootstrap(ctx, "api")
	if err != nil {
		log.Fatalf("api: %v", err)
	}
	defer rt.Close()

	if err := run(ctx, rt); err != nil {
		rt.Log.Fatal("api gateway stopped", zap.Error(err))
	}
}

func run(ctx context.Context, rt *server.Runtime) error {
	upstreams := map[string]string{
		"membership":     rt.Config.Services.Membership,
		"billing":        rt.Config.Services.Billing,
		"reconciliation": rt.Config.Services.Reconciliation,
	}

	limit := httpx.RateLimit(rate.NewLimiter(rate.Limit(rt.Config.RateLimit.RPS*10), rt.Config.RateLimit.Burst*10))
	r := server.NewRouter(rt.Log)
	for name, raw := range upstreams {
		target, err := url.Parse(raw)
		if err != nil || target.Host == "" {
			return fmt.Errorf("invalid %s service url %q", name, raw)
		}
		prefix := "/api/v1/" + name
		r.Mount(prefix, limit(http.StripPrefix(prefix, proxy(name, target, rt.Log))))
		rt.Log.Info("proxying", zap.String("prefix", prefix), zap.Stringer("upstream", target))
	}
	return rt.Serve(ctx, r)
}

func proxy(name string, target *url.URL, log *zap.Logger) http.Handler {
	p := httputil.NewSingleHostReverseProxy(target)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream unavailable", zap.String("service", name), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.JSON(w, http.StatusBadGateway, httpx.ErrorBody{Error: name + " service unavailable", Kind: "dependency"})
	}
	return p
}
