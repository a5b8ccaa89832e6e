package discord

import (
	"context"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		prefix   string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{
			name:     "plain command",
			content:  ";join",
			prefix:   ";",
			wantName: "join",
			wantOK:   true,
		},
		{
			name:     "command with argument",
			content:  ";speaker mei",
			prefix:   ";",
			wantName: "speaker",
			wantArgs: []string{"mei"},
			wantOK:   true,
		},
		{
			name:     "multiple arguments",
			content:  "!notify hello world",
			prefix:   "!",
			wantName: "notify",
			wantArgs: []string{"hello", "world"},
			wantOK:   true,
		},
		{
			name:     "quoted argument keeps spaces",
			content:  `;prefix "!s "`,
			prefix:   ";",
			wantName: "prefix",
			wantArgs: []string{"!s "},
			wantOK:   true,
		},
		{
			name:     "multi character prefix",
			content:  "!s join",
			prefix:   "!s ",
			wantName: "join",
			wantOK:   true,
		},
		{
			name:    "wrong prefix",
			content: "?join",
			prefix:  ";",
			wantOK:  false,
		},
		{
			name:    "prefix only",
			content: ";",
			prefix:  ";",
			wantOK:  false,
		},
		{
			name:    "prefix and spaces only",
			content: ";   ",
			prefix:  ";",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, args, ok := Parse(tt.content, tt.prefix)
			if ok != tt.wantOK {
				t.Fatalf("Parse() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if name != tt.wantName {
				t.Errorf("Parse() name = %q, want %q", name, tt.wantName)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("Parse() args = %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`say "hello world" now`, []string{"say", "hello world", "now"}},
		{`""`, []string{""}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := splitArgs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitArgs(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRouterLookup(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	called := false
	r.Register("shutdown", func(ctx context.Context, ev *Event) error {
		called = true
		return nil
	})
	r.Alias("sd", "shutdown")

	h, ok := r.Lookup("sd")
	if !ok {
		t.Fatal("Lookup(sd) did not resolve the alias")
	}
	if err := h(context.Background(), &Event{}); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !called {
		t.Error("alias did not invoke the registered handler")
	}

	if _, ok := r.Lookup("unknown"); ok {
		t.Error("Lookup(unknown) resolved a handler")
	}
}

func TestEventArg(t *testing.T) {
	t.Parallel()

	ev := &Event{Args: []string{"first"}}
	if got := ev.Arg(0); got != "first" {
		t.Errorf("Arg(0) = %q", got)
	}
	if got := ev.Arg(1); got != "" {
		t.Errorf("Arg(1) = %q, want empty", got)
	}
}
