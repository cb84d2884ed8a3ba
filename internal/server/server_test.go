package server

import (
	"testing"
	"time"

	"github.com/timelessnp/sitechat/internal/api"
	"github.com/timelessnp/sitechat/internal/infra/config"
)

func TestNew_ConfiguresAddressAndTimeouts(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 4000
	cfg.Server.ReadTimeout = config.Dur(5 * time.Second)
	cfg.Server.WriteTimeout = config.Dur(10 * time.Second)
	cfg.Server.IdleTimeout = config.Dur(30 * time.Second)

	s := New(api.Deps{Config: cfg})

	if s.http.Addr != "127.0.0.1:4000" {
		t.Errorf("Addr = %q; want 127.0.0.1:4000", s.http.Addr)
	}
	if s.http.Handler == nil {
		t.Error("handler must be wired")
	}
	if s.http.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v; want 5s", s.http.ReadTimeout)
	}
	if s.http.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v; want 10s", s.http.WriteTimeout)
	}
	if s.http.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v; want 30s", s.http.IdleTimeout)
	}
}
