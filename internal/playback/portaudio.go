package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/starford/soundboard/internal/apperr"
)

// PortAudio plays decoded clips on a named output device. Each Play opens
// its own stream so overlapping sounds are mixed by the host audio system.
type PortAudio struct {
	deviceName string
	logger     *slog.Logger
	gain       level

	initOnce sync.Once
	initErr  error
	device   *portaudio.DeviceInfo

	mu      sync.Mutex
	current *voice
	closed  bool
}

// NewPortAudio creates a backend bound to deviceName. An empty name selects
// the host default output device. PortAudio itself is initialized lazily.
func NewPortAudio(deviceName string, logger *slog.Logger) *PortAudio {
	p := &PortAudio{deviceName: deviceName, logger: logger}
	p.gain.Store(1)
	return p
}

// Init initializes PortAudio and resolves the output device. It runs once;
// later calls return the first result.
func (p *PortAudio) Init() error {
	p.initOnce.Do(func() {
		if err := portaudio.Initialize(); err != nil {
			p.initErr = fmt.Errorf("playback: portaudio init: %w", err)
			return
		}
		dev, err := findOutputDevice(p.deviceName)
		if err != nil {
			_ = portaudio.Terminate()
			p.initErr = err
			return
		}
		p.device = dev
		p.logger.Info("playback: output device ready",
			slog.String("device", dev.Name),
			slog.Int("channels", dev.MaxOutputChannels),
			slog.Float64("sample_rate", dev.DefaultSampleRate))
	})
	return p.initErr
}

func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("playback: default output device: %w", err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("playback: list devices: %w", err)
	}
	for _, d := range devices {
		if d.MaxOutputChannels > 0 && d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("playback: output device %q not found", name)
}

// Play decodes path and starts a stream for it.
func (p *PortAudio) Play(path string) (Handle, error) {
	clip, err := Decode(path)
	if err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: err}
	}
	if err := p.Init(); err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: err}
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, &apperr.PlaybackError{Path: path, Err: errors.New("backend closed")}
	}

	if clip.Channels > p.device.MaxOutputChannels {
		clip = clip.Mono()
	}

	params := portaudio.HighLatencyParameters(nil, p.device)
	params.Output.Channels = clip.Channels
	params.SampleRate = float64(clip.SampleRate)

	v := newVoice(clip, &p.gain)
	stream, err := portaudio.OpenStream(params, v.process)
	if err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: fmt.Errorf("open stream: %w", err)}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, &apperr.PlaybackError{Path: path, Err: fmt.Errorf("start stream: %w", err)}
	}

	p.mu.Lock()
	p.current = v
	p.mu.Unlock()

	go p.reap(path, stream, v)
	return v, nil
}

func (p *PortAudio) reap(path string, stream *portaudio.Stream, v *voice) {
	<-v.Done()

	var err error
	if v.stopped.Load() {
		err = stream.Abort()
	} else {
		err = stream.Stop()
	}
	if err != nil {
		p.logger.Debug("playback: stop stream failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	if err := stream.Close(); err != nil {
		p.logger.Debug("playback: close stream failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	p.mu.Lock()
	if p.current == v {
		p.current = nil
	}
	p.mu.Unlock()
}

// Stop halts the most recently started clip.
func (p *PortAudio) Stop() {
	p.mu.Lock()
	v := p.current
	p.mu.Unlock()
	if v != nil {
		v.Stop()
	}
}

// SetVolume changes the gain of all current and future clips.
func (p *PortAudio) SetVolume(l float64) {
	p.gain.Store(l)
}

// Close terminates PortAudio if it was initialized.
func (p *PortAudio) Close() error {
	p.mu.Lock()
	p.closed = true
	v := p.current
	p.mu.Unlock()
	if v != nil {
		v.Stop()
	}
	if p.device == nil {
		return nil
	}
	return portaudio.Terminate()
}

// voice is one playing clip. process runs on the audio thread.
type voice struct {
	clip *Clip
	pos  int
	gain *level

	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newVoice(clip *Clip, gain *level) *voice {
	return &voice{clip: clip, gain: gain, done: make(chan struct{})}
}

func (v *voice) process(out []float32) {
	if v.stopped.Load() || v.pos >= len(v.clip.Samples) {
		clear(out)
		v.finish()
		return
	}

	g := float32(v.gain.Load())
	n := copy(out, v.clip.Samples[v.pos:])
	for i := 0; i < n; i++ {
		out[i] *= g
	}
	clear(out[n:])
	v.pos += n

	if v.pos >= len(v.clip.Samples) {
		v.finish()
	}
}

func (v *voice) finish() {
	v.once.Do(func() { close(v.done) })
}

func (v *voice) Stop() {
	v.stopped.Store(true)
	v.finish()
}

func (v *voice) Done() <-chan struct{} { return v.done }
