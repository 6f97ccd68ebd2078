package router

import "testing"

func TestParseClassifierReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Route
		wantErr bool
	}{
		{"plain local", `{"route": "local_search"}`, RouteLocalSearch, false},
		{"plain web", `{"route":"web_search"}`, RouteWebSearch, false},
		{"surrounding whitespace", "\n  {\"route\": \"chat\"}\n", RouteChat, false},
		{"json fence", "```json\n{\"route\": \"web_search\"}\n```", RouteWebSearch, false},
		{"bare fence", "```\n{\"route\": \"chat\"}\n```", RouteChat, false},

		{"empty", "", "", true},
		{"prose", "I think this is a web_search", "", true},
		{"prose before json", `Sure! {"route": "chat"}`, "", true},
		{"trailing prose", `{"route": "chat"} hope that helps`, "", true},
		{"two objects", `{"route": "chat"}{"route": "web_search"}`, "", true},
		{"extra key", `{"route": "chat", "confidence": 0.9}`, "", true},
		{"repeated route key", `{"route":"chat","route":"web_search"}`, "", true},
		{"key after route", `{"route": "chat", "Route": "chat"}`, "", true},
		{"object value", `{"route": {"name": "chat"}}`, "", true},
		{"uppercase value", `{"route": "CHAT"}`, "", true},
		{"uppercase key", `{"Route": "chat"}`, "", true},
		{"unknown route", `{"route": "database"}`, "", true},
		{"non string", `{"route": 1}`, "", true},
		{"array", `["chat"]`, "", true},
		{"null", `null`, "", true},
		{"empty object", `{}`, "", true},
		{"double fence", "```json\n```json\n{\"route\": \"chat\"}\n```\n```", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassifierReply(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseClassifierReply(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClassifierReply(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseClassifierReply(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello!! ", "hello"},
		{"Thank   you.", "thank you"},
		{"What's a goroutine?", "what's a goroutine"},
		{"¿Qué?", "qué"},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := normalizeQuery(tt.in); got != tt.want {
			t.Errorf("normalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
