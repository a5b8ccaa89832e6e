package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/observe"
)

// Sentinel errors for session lifecycle misuse.
var (
	ErrAlreadyConnected = errors.New("voice: already connected in this guild")
	ErrNotConnected     = errors.New("voice: not connected in this guild")
)

// JoinFunc establishes a voice connection to a channel.
type JoinFunc func(guildID, channelID string) (Conn, error)

// Manager tracks at most one [Session] per guild.
type Manager struct {
	join    JoinFunc
	cueDir  string
	log     *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithCueDir sets the directory holding notification sounds.
func WithCueDir(dir string) ManagerOption {
	return func(m *Manager) { m.cueDir = dir }
}

// WithLogger sets the logger passed to sessions.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMetrics enables session and playback instrumentation.
func WithMetrics(met *observe.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = met }
}

// NewManager creates a session manager that joins channels through join.
func NewManager(join JoinFunc, opts ...ManagerOption) *Manager {
	m := &Manager{
		join:     join,
		cueDir:   "sounds",
		log:      slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Join connects to the given voice channel and returns the guild's session.
// When a session already exists it is returned unchanged together with
// [ErrAlreadyConnected], regardless of which channel it sits in.
func (m *Manager) Join(ctx context.Context, guildID, channelID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[guildID]; ok {
		return s, ErrAlreadyConnected
	}

	conn, err := m.join(guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("voice: join guild %s channel %s: %w", guildID, channelID, err)
	}
	s := newSession(guildID, conn, m.cueDir, m.log, m.metrics)
	m.sessions[guildID] = s

	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, 1)
	}
	m.log.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return s, nil
}

// Get returns the guild's session, if any.
func (m *Manager) Get(guildID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return s, ok
}

// Leave disconnects and removes the guild's session, waiting for any
// playback in progress to finish first. Returns [ErrNotConnected] when the
// guild has no session.
func (m *Manager) Leave(ctx context.Context, guildID string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	m.log.Info("left voice channel", "guild_id", guildID)
	return s.Close(ctx)
}

// Forget drops the guild's session without disconnecting, for when the
// gateway already tore the connection down (kick, region move).
func (m *Manager) Forget(ctx context.Context, guildID string) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	// Close without Disconnect is not exposed; the connection is gone, so a
	// failed disconnect is expected and ignored.
	s.closeOnce.Do(func() { close(s.done) })
	m.log.Info("dropped stale voice session", "guild_id", guildID)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll disconnects every session immediately, cutting off in-flight
// playback. Used during shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	clear(m.sessions)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.abort(); err != nil {
			errs = append(errs, err)
		}
		if m.metrics != nil {
			m.metrics.ActiveSessions.Add(ctx, -1)
		}
	}
	return errors.Join(errs...)
}

// discordConn adapts *discordgo.VoiceConnection to [Conn].
type discordConn struct {
	vc *discordgo.VoiceConnection
}

var _ Conn = (*discordConn)(nil)

func (c *discordConn) Speaking(b bool) error   { return c.vc.Speaking(b) }
func (c *discordConn) OpusSend() chan<- []byte { return c.vc.OpusSend }
func (c *discordConn) ChannelID() string       { return c.vc.ChannelID }
func (c *discordConn) Disconnect() error       { return c.vc.Disconnect() }

// NewDiscordJoiner returns a [JoinFunc] backed by the Discord gateway. The
// bot joins deafened; it only speaks.
func NewDiscordJoiner(s *discordgo.Session) JoinFunc {
	return func(guildID, channelID string) (Conn, error) {
		vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			return nil, err
		}
		return &discordConn{vc: vc}, nil
	}
}
