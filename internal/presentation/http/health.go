package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type healthResponse struct {
	Status int
	Body   struct {
		Status    string  `json:"status"`
		Uptime    float64 `json:"uptime" doc:"Seconds since the server started"`
		PageCount int     `json:"pageCount"`
		Version   string  `json:"version"`
	}
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Version = s.version
	resp.Body.Uptime = s.now().Sub(s.startedAt).Round(time.Millisecond).Seconds()

	count, err := s.pages.Count(ctx)
	if err != nil {
		s.logFailure(ctx, err, "health check could not read the page index", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		return resp, nil
	}

	resp.Body.PageCount = count
	return resp, nil
}
