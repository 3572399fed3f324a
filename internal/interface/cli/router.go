package cli

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/jee-coach/tutor/pkg/logger"
)

// ErrUnknownCommand is returned by Route for a slash command nobody registered.
var ErrUnknownCommand = errors.New("cli: unknown command")

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes one line of input to a command handler or to the text handler.
// ══════════════════════════════════════════════════════════════════════════════

// HandlerFunc handles one command. args is the text after the command word.
type HandlerFunc func(ctx context.Context, args string) error

// Command describes a registered command for /help.
type Command struct {
	Name  string
	Usage string
	Help  string
	// Aliases are alternative names without the leading "/".
	Aliases []string

	handle HandlerFunc
}

// Router routes REPL input.
type Router struct {
	log *logger.Logger

	mu       sync.RWMutex
	commands map[string]*Command
	text     HandlerFunc
}

// NewRouter creates a router. Free text goes to text.
func NewRouter(text HandlerFunc, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{
		log:      log,
		commands: make(map[string]*Command),
		text:     text,
	}
}

// Register adds a command. The name is given without the leading "/".
func (r *Router) Register(cmd Command, handle HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := cmd
	c.handle = handle
	r.commands[strings.ToLower(c.Name)] = &c
	for _, alias := range c.Aliases {
		r.commands[strings.ToLower(alias)] = &c
	}
}

// Route dispatches one trimmed input line.
func (r *Router) Route(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	name, args, ok := parseCommand(line)
	if !ok {
		return r.text(ctx, line)
	}

	r.mu.RLock()
	cmd, found := r.commands[name]
	r.mu.RUnlock()

	if !found {
		r.log.Debug("unknown command", logger.String("command", name))
		return ErrUnknownCommand
	}
	r.log.Debug("routing command", logger.String("command", cmd.Name))
	return cmd.handle(ctx, args)
}

// Commands lists the registered commands by name, without aliases.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.commands))
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// parseCommand splits "/name args" into its parts.
func parseCommand(line string) (name, args string, ok bool) {
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(line, "/")
	name, args, _ = strings.Cut(body, " ")
	return strings.ToLower(name), strings.TrimSpace(args), name != ""
}
