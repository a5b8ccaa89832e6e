// Package voice controls the bot's voice channel sessions: one session per
// guild, each playing wav files into Discord strictly one at a time.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sabrina-ksks/shaberina/internal/observe"
)

// Cue names playable via [Session.PlayCue]. Each maps to <cueDir>/<name>.wav.
const (
	CueJoin          = "join"
	CueLeave         = "leave"
	CueAutoJoin      = "auto_join"
	CueAlreadyJoined = "already_joined"
)

// Conn is the voice transport a [Session] plays into. Satisfied by the
// discordgo voice connection through [NewDiscordJoiner].
type Conn interface {
	Speaking(bool) error
	OpusSend() chan<- []byte
	ChannelID() string
	Disconnect() error
}

// Session is a live voice connection for one guild. Playback is serialized
// through a single slot: concurrent Speak calls block until the slot frees,
// with no fairness guarantee on wake order.
type Session struct {
	guildID string
	conn    Conn
	cueDir  string

	slot    *semaphore.Weighted
	log     *slog.Logger
	metrics *observe.Metrics

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(guildID string, conn Conn, cueDir string, log *slog.Logger, metrics *observe.Metrics) *Session {
	return &Session{
		guildID: guildID,
		conn:    conn,
		cueDir:  cueDir,
		slot:    semaphore.NewWeighted(1),
		log:     log,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// ChannelID returns the voice channel this session is connected to.
func (s *Session) ChannelID() string { return s.conn.ChannelID() }

// Speak plays the wav file at path and deletes it afterwards, success or
// not. It blocks until the playback slot is free or ctx is done.
func (s *Session) Speak(ctx context.Context, path string) error {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove wav after playback", "path", path, "error", err)
		}
	}()
	return s.play(ctx, path)
}

// PlayCue plays a named notification sound. Unlike [Session.Speak] the file
// is kept.
func (s *Session) PlayCue(ctx context.Context, name string) error {
	return s.play(ctx, filepath.Join(s.cueDir, name+".wav"))
}

func (s *Session) play(ctx context.Context, path string) error {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("voice: acquire playback slot: %w", err)
	}
	defer s.slot.Release(1)

	select {
	case <-s.done:
		return fmt.Errorf("voice: session for guild %s is closed", s.guildID)
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("voice: read wav: %w", err)
	}
	audio, err := decodeWAV(data)
	if err != nil {
		return err
	}
	pcm := toOpusInput(audio)

	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.conn.Speaking(true); err != nil {
		return fmt.Errorf("voice: start speaking: %w", err)
	}
	defer func() {
		if err := s.conn.Speaking(false); err != nil {
			s.log.Warn("failed to clear speaking state", "guild_id", s.guildID, "error", err)
		}
	}()

	for off := 0; off < len(pcm); off += opusFrameBytes {
		frame := pcm[off:min(off+opusFrameBytes, len(pcm))]
		if len(frame) < opusFrameBytes {
			// Pad the trailing frame with silence.
			padded := make([]byte, opusFrameBytes)
			copy(padded, frame)
			frame = padded
		}
		packet, err := enc.encode(frame)
		if err != nil {
			return err
		}
		select {
		case s.conn.OpusSend() <- packet:
		case <-ctx.Done():
			return fmt.Errorf("voice: playback interrupted: %w", ctx.Err())
		case <-s.done:
			return fmt.Errorf("voice: session for guild %s closed during playback", s.guildID)
		}
	}

	if s.metrics != nil {
		s.metrics.PlaybackDuration.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

// Close disconnects from the voice channel after the playback in progress,
// if any, has finished. ctx bounds the wait; once it is done the playback is
// cut off and the disconnect proceeds regardless. Safe to call more than
// once.
func (s *Session) Close(ctx context.Context) error {
	if err := s.slot.Acquire(ctx, 1); err == nil {
		defer s.slot.Release(1)
	}
	return s.abort()
}

// abort tears the session down immediately, interrupting in-flight playback.
// Used for process shutdown and gateway-initiated disconnects.
func (s *Session) abort() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Disconnect()
	})
	return err
}
