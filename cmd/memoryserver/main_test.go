package main

import (
	"testing"

	"github.com/ankitaa186/agentic-memories-sub004/pkg/config"
)

func TestResolveAddr(t *testing.T) {
	cases := []struct {
		name string
		addr string
		cfg  func() *config.Config
		want string
	}{
		{
			name: "flag wins",
			addr: "127.0.0.1:9000",
			cfg: func() *config.Config {
				cfg := config.New()
				cfg.Server.Host = "0.0.0.0"
				cfg.Server.Port = 8080
				return cfg
			},
			want: "127.0.0.1:9000",
		},
		{
			name: "config host:port when flag empty",
			addr: "",
			cfg: func() *config.Config {
				cfg := config.New()
				cfg.Server.Host = "localhost"
				cfg.Server.Port = 9090
				return cfg
			},
			want: "localhost:9090",
		},
		{
			name: "defaults host when port set but host empty",
			addr: "",
			cfg: func() *config.Config {
				cfg := config.New()
				cfg.Server.Host = ""
				cfg.Server.Port = 9090
				return cfg
			},
			want: "0.0.0.0:9090",
		},
		{
			name: "falls back to :8080 when port unset",
			addr: "",
			cfg: func() *config.Config {
				cfg := config.New()
				cfg.Server.Host = "localhost"
				cfg.Server.Port = 0
				return cfg
			},
			want: ":8080",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addrFlag = tc.addr
			t.Cleanup(func() { addrFlag = "" })

			got := resolveAddr(tc.cfg())
			if got != tc.want {
				t.Fatalf("resolveAddr() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOpenDBNilWhenUnconfigured(t *testing.T) {
	cfg := config.New()
	cfg.Relational.DSN = ""
	cfg.Relational.Host = ""

	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("openDB: %v", err)
	}
	if db != nil {
		t.Fatalf("expected nil db when no DSN/host configured")
	}
}
