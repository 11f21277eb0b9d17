package hotkey

import (
	"fmt"
	"log/slog"
)

// Resolver maps a canonical key to the path of its bound sound.
type Resolver interface {
	Resolve(key string) (string, bool)
}

// Player starts playback of a sound file.
type Player interface {
	Play(path string) error
}

// Dispatcher plays the sound bound to each pressed key.
type Dispatcher struct {
	resolver Resolver
	player   Player
	logger   *slog.Logger
}

func NewDispatcher(resolver Resolver, player Player, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{resolver: resolver, player: player, logger: logger}
}

// Attach subscribes the dispatcher to key presses on l.
func (d *Dispatcher) Attach(l *Listener) *Subscription {
	return l.Subscribe(Press, d.HandleKey)
}

// HandleKey plays the sound bound to key. Unbound keys are ignored.
func (d *Dispatcher) HandleKey(key string) error {
	path, ok := d.resolver.Resolve(key)
	if !ok {
		return nil
	}
	d.logger.Debug("hotkey: dispatch", slog.String("key", key), slog.String("path", path))
	if err := d.player.Play(path); err != nil {
		return fmt.Errorf("hotkey: play %s: %w", key, err)
	}
	return nil
}
