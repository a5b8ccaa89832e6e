package discord

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/entity"
)

// Event carries one prefix command invocation to its handler. Args hold the
// raw tokens after the command name; handlers normalize what they need.
type Event struct {
	Message *discordgo.Message
	Guild   entity.GuildConfig
	Args    []string
}

// Arg returns the i-th argument, or "" when absent.
func (e *Event) Arg(i int) string {
	if i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// HandlerFunc handles one prefix command invocation.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Router dispatches parsed prefix commands to registered handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	aliases  map[string]string
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		aliases:  make(map[string]string),
	}
}

// Register binds a command name to a handler.
func (r *Router) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Alias makes alias resolve to the handler registered under name.
func (r *Router) Alias(alias, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = name
}

// Lookup resolves a command name, following aliases.
func (r *Router) Lookup(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Parse splits message content into a command name and its arguments. ok is
// false when the content does not start with prefix or names no command.
func Parse(content, prefix string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	tokens := splitArgs(content[len(prefix):])
	if len(tokens) == 0 {
		return "", nil, false
	}
	return tokens[0], tokens[1:], true
}

// splitArgs splits on spaces, keeping double-quoted segments intact so
// arguments may contain spaces (e.g. a prefix of `"!s "`).
func splitArgs(s string) []string {
	var (
		args   []string
		cur    strings.Builder
		quoted bool
		taken  bool
	)
	flush := func() {
		if taken || cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
			taken = false
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			taken = true
		case r == ' ' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}
