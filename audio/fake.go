package audio

import "sync"

// FakeContext is a scripted capture backend for tests: devices, errors,
// and data delivery are all driven by the test.
type FakeContext struct {
	mu sync.Mutex

	Devs            []DeviceInfo
	DevicesErr      error
	OpenErr         error // returned by NewCapture for any config
	StartErr        error // copied onto every created capture
	RejectPreferred bool  // reject constrained configs, accept DefaultConfig

	captures    []*FakeCapture
	lastConfig  CaptureConfig
	closedCount int
}

func NewFakeContext(devices ...DeviceInfo) *FakeContext {
	return &FakeContext{Devs: devices}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Devs, f.DevicesErr
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	if f.RejectPreferred && config != DefaultConfig() {
		return nil, ErrConstraintsRejected
	}
	f.lastConfig = config
	c := &FakeCapture{StartErr: f.StartErr}
	f.captures = append(f.captures, c)
	return c, nil
}

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closedCount++
	f.mu.Unlock()
}

func (f *FakeContext) LastConfig() CaptureConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastConfig
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeCapture, len(f.captures))
	copy(out, f.captures)
	return out
}

// FakeCapture records lifecycle calls and lets the test push data
// fragments through the registered callback.
type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	started bool
	stopped bool
	closed  bool

	StartErr error
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StartErr != nil {
		return c.StartErr
	}
	c.started = true
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

// Feed pushes one data fragment through the callback, as the platform
// would from its capture thread.
func (c *FakeCapture) Feed(data []byte) {
	c.mu.Lock()
	cb := c.cb
	c.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/2))
	}
}

func (c *FakeCapture) Started() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.started }
func (c *FakeCapture) Stopped() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.stopped }
func (c *FakeCapture) Closed() bool  { c.mu.Lock(); defer c.mu.Unlock(); return c.closed }
