package commands

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pandorum/internal/calendar"
	"pandorum/internal/config"
	kit "pandorum/internal/transport"
	logx "pandorum/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessMaintainer
)

const deniedMessage = "Command can only be run by a maintainer of the bot."

// Command is one entry in the dispatch table: a route plus its handler and
// the access level checked before the handler runs.
type Command struct {
	// Route is a space-separated command path, e.g.:
	//   "echo"
	//   "calendar add"
	Route       string
	Description string
	Usage       string
	Access      Access
	Handle      HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string

	Logger logx.Logger
}

// Deps carries the collaborators handlers need; everything is passed in
// explicitly, there is no ambient lookup.
type Deps struct {
	Adapter kit.Adapter
	Config  *config.Manager
	Store   *calendar.Store // nil when the calendar feature is disabled
	Log     logx.Logger
}

type Manager struct {
	deps Deps

	mu   sync.RWMutex
	cmds map[string]*Command // keyed by route

	chain Middleware
}

func NewManager(deps Deps) *Manager {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	m := &Manager{
		deps: deps,
		cmds: map[string]*Command{},
	}
	m.chain = func(next HandlerFunc) HandlerFunc {
		return Chain(next,
			MWPanicRecover(deps.Log),
			MWTimeout(30*time.Second),
			MWRequestLog(deps.Log),
		)
	}

	m.Register(builtinCommands(m)...)
	return m
}

func (m *Manager) Register(cmds ...*Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cmds {
		if c == nil || strings.TrimSpace(c.Route) == "" || c.Handle == nil {
			continue
		}
		m.cmds[c.Route] = c
		m.deps.Log.Info("command registered", logx.String("route", "!"+c.Route))
	}
}

// Commands returns the registered commands sorted by route (for help).
func (m *Manager) Commands() []*Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Command, 0, len(m.cmds))
	for _, c := range m.cmds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// DispatchLoop consumes updates until ctx is done.
func (m *Manager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.dispatch(ctx, up)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	msg := up.Message

	text := strings.TrimSpace(msg.Text)
	if len(text) < 2 || (text[0] != '/' && text[0] != '!') {
		return
	}
	tokens := tokenizeCommandLine(text[1:])
	if len(tokens) == 0 {
		return
	}
	// Strip a "@botname" suffix on the first token (Telegram group syntax).
	if i := strings.IndexByte(tokens[0], '@'); i > 0 {
		tokens[0] = tokens[0][:i]
	}

	cmd, args := m.match(tokens)
	if cmd == nil {
		return
	}

	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID:  msg.FromID,
		Command: cmd.Route,
		Args:    args,
		Logger:  m.deps.Log.With(logx.String("cmd", cmd.Route)),
	}

	if cmd.Access == AccessMaintainer && !m.isMaintainer(msg.FromID) {
		req.Logger.Warn("permission denied", logx.Int64("from_id", msg.FromID))
		m.reply(ctx, req, deniedMessage)
		return
	}

	h := m.chain(cmd.Handle)
	if err := h(ctx, req); err != nil {
		req.Logger.Warn("command failed", logx.Err(err))
	}
}

// match resolves the longest registered route matching the leading tokens.
func (m *Manager) match(tokens []string) (*Command, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for n := min(2, len(tokens)); n >= 1; n-- {
		route := strings.ToLower(strings.Join(tokens[:n], " "))
		if c, ok := m.cmds[route]; ok {
			return c, tokens[n:]
		}
	}
	return nil, nil
}

func (m *Manager) isMaintainer(userID int64) bool {
	cfg := m.deps.Config.Get()
	if cfg == nil {
		return false
	}
	for _, id := range cfg.Telegram.MaintainerUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Manager) reply(ctx context.Context, req *Request, text string) {
	if _, err := m.deps.Adapter.SendText(ctx, req.Chat, text, nil); err != nil {
		req.Logger.Warn("reply failed", logx.Err(err))
	}
}
