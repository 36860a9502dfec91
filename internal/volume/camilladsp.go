package volume

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/logger"
)

// CamillaDSP defaults.
const (
	DefaultCamillaURL     = "ws://127.0.0.1:1234"
	DefaultCamillaMinDB   = -65.0
	DefaultCamillaMaxDB   = 0.0
	defaultCamillaTimeout = 500 * time.Millisecond
)

// CamillaDSPOptions configures the CamillaDSP backend.
type CamillaDSPOptions struct {
	URL         string        `koanf:"url" yaml:"url" json:"url"`
	MinDB       float64       `koanf:"min_db" yaml:"min_db" json:"min_db"`
	MaxDB       float64       `koanf:"max_db" yaml:"max_db" json:"max_db"`
	ReadTimeout time.Duration `koanf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
}

// CamillaDSP controls the Main fader of a CamillaDSP instance over its
// websocket API. Levels map linearly onto [MinDB, MaxDB].
//
// The connection is established lazily and dropped on any I/O error; the next
// call reconnects once. There is no retry loop so a dead DSP surfaces as
// ErrDeviceUnavailable on the tick that hit it.
type CamillaDSP struct {
	mu   sync.Mutex
	conn *websocket.Conn
	opts CamillaDSPOptions
	log  *logger.Logger
}

// NewCamillaDSP validates opts and returns a CamillaDSP controller.
func NewCamillaDSP(opts CamillaDSPOptions) (*CamillaDSP, error) {
	if opts.URL == "" {
		opts.URL = DefaultCamillaURL
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if opts.MinDB == 0 && opts.MaxDB == 0 {
		opts.MinDB, opts.MaxDB = DefaultCamillaMinDB, DefaultCamillaMaxDB
	}
	if opts.MinDB >= opts.MaxDB {
		return nil, fmt.Errorf("camilladsp min_db (%.1f) must be below max_db (%.1f)", opts.MinDB, opts.MaxDB)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultCamillaTimeout
	}

	return &CamillaDSP{
		opts: opts,
		log:  logger.Named("camilladsp"),
	}, nil
}

// Get queries the Main fader volume and converts it to a level.
func (c *CamillaDSP) Get(ctx context.Context) (float64, error) {
	response, err := c.sendAndRead(ctx, "GetVolume")
	if err != nil {
		return 0, unavailable("camilladsp get volume", err)
	}

	var volResp struct {
		GetVolume struct {
			Result string  `json:"result"`
			Value  float64 `json:"value"`
		} `json:"GetVolume"`
	}
	if err := json.Unmarshal(response, &volResp); err != nil {
		return 0, unavailable("camilladsp get volume", fmt.Errorf("parse response: %w", err))
	}
	if volResp.GetVolume.Result != "Ok" {
		return 0, unavailable("camilladsp get volume", fmt.Errorf("result %q", volResp.GetVolume.Result))
	}

	c.log.Debug().Float64("volume_db", volResp.GetVolume.Value).Msg("GetVolume")
	return c.toLevel(volResp.GetVolume.Value), nil
}

// Set converts level to dB and sends SetVolume.
func (c *CamillaDSP) Set(ctx context.Context, level float64) error {
	targetDB := c.toDB(Clamp(level))

	response, err := c.sendAndRead(ctx, map[string]any{"SetVolume": targetDB})
	if err != nil {
		return unavailable("camilladsp set volume", err)
	}

	var setResp struct {
		SetVolume struct {
			Result string `json:"result"`
		} `json:"SetVolume"`
	}
	if err := json.Unmarshal(response, &setResp); err != nil {
		return unavailable("camilladsp set volume", fmt.Errorf("parse response: %w", err))
	}
	if setResp.SetVolume.Result != "Ok" {
		return unavailable("camilladsp set volume", fmt.Errorf("result %q", setResp.SetVolume.Result))
	}

	c.log.Debug().Float64("target_db", targetDB).Msg("SetVolume")
	return nil
}

// Close closes the websocket connection.
func (c *CamillaDSP) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *CamillaDSP) toLevel(db float64) float64 {
	return Clamp((db - c.opts.MinDB) / (c.opts.MaxDB - c.opts.MinDB))
}

func (c *CamillaDSP) toDB(level float64) float64 {
	return c.opts.MinDB + level*(c.opts.MaxDB-c.opts.MinDB)
}

// sendAndRead writes one command and waits for its reply.
func (c *CamillaDSP) sendAndRead(ctx context.Context, v any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	deadline := time.Now().Add(c.opts.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropLocked()
		return nil, err
	}

	_, message, err := c.conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		return nil, err
	}
	return message, nil
}

// connect must be called with c.mu held.
func (c *CamillaDSP) connect(ctx context.Context) error {
	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := d.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	c.conn = conn
	c.log.Info().Str("url", c.opts.URL).Msg("connected to CamillaDSP")
	return nil
}

func (c *CamillaDSP) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
