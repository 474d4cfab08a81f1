package buspro

import (
	"fmt"
	"math"
	"net"
	"sync"
	"time"
)

// Gateway timing constants.
const (
	// movingPollInterval is the status polling period while covers move,
	// so wall-panel STOPs are intercepted reliably.
	movingPollInterval = 2 * time.Second

	// motionTickInterval drives UI position updates during movement even
	// when the bus emits no intermediate telegrams.
	motionTickInterval = 500 * time.Millisecond
)

// LightState is the tracked state of a light channel.
type LightState struct {
	On bool `json:"on"`

	// Brightness is 0..255 (platform scale).
	Brightness int `json:"brightness"`
}

// CalibrationRun tracks an in-progress cover travel-time measurement.
type CalibrationRun struct {
	Direction int // CoverStatusOpen or CoverStatusClose
	StartedAt time.Time
}

// Config holds gateway settings.
type Config struct {
	Transport    TransportConfig
	SendInterval time.Duration
	PollInterval time.Duration
}

// Gateway is the BusPro protocol endpoint.
//
// It owns the UDP transport and the send scheduler, demultiplexes received
// telegrams to per-device state machines, and exposes command methods that
// queue through the scheduler. State changes surface through listener
// callbacks registered before Start.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Gateway struct {
	transport *Transport
	scheduler *Scheduler
	sniffer   *Sniffer
	logger    Logger

	pollInterval time.Duration

	mu     sync.Mutex
	covers map[ChannelAddress]*Cover
	lights map[ChannelAddress]*LightState
	calib  map[ChannelAddress]CalibrationRun

	onLight   func(ChannelAddress, LightState)
	onCover   func(ChannelAddress, CoverState)
	onReading func(Reading)

	done chan struct{}
	wg   sync.WaitGroup
}

// NewGateway creates a gateway. Call Start to bind the socket and begin
// dispatching.
func NewGateway(cfg Config, logger Logger) *Gateway {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Second
	}

	return &Gateway{
		transport:    NewTransport(cfg.Transport, logger),
		scheduler:    NewScheduler(cfg.SendInterval),
		sniffer:      NewSniffer(0),
		logger:       logger,
		pollInterval: cfg.PollInterval,
		covers:       make(map[ChannelAddress]*Cover),
		lights:       make(map[ChannelAddress]*LightState),
		calib:        make(map[ChannelAddress]CalibrationRun),
		done:         make(chan struct{}),
	}
}

// SetOnLightState registers the light state listener. Call before Start.
func (g *Gateway) SetOnLightState(cb func(ChannelAddress, LightState)) {
	g.onLight = cb
}

// SetOnCoverState registers the cover state listener. Call before Start.
func (g *Gateway) SetOnCoverState(cb func(ChannelAddress, CoverState)) {
	g.onCover = cb
}

// SetOnReading registers the sensor/dry-contact listener. Call before Start.
func (g *Gateway) SetOnReading(cb func(Reading)) {
	g.onReading = cb
}

// Sniffer returns the telegram capture ring.
func (g *Gateway) Sniffer() *Sniffer {
	return g.sniffer
}

// Start binds the UDP socket and launches the dispatcher, status poller,
// and movement ticker.
//
// Returns:
//   - error: If the socket cannot be bound
func (g *Gateway) Start() error {
	g.transport.SetOnFrame(g.handleFrame)
	if err := g.transport.Start(); err != nil {
		return err
	}
	g.scheduler.Start()

	g.wg.Add(2)
	go g.pollLoop()
	go g.motionTickLoop()

	g.logger.Info("BusPro gateway started")
	return nil
}

// Stop shuts down all workers and closes the socket.
func (g *Gateway) Stop() {
	close(g.done)
	g.scheduler.Stop()
	g.transport.Stop()
	g.wg.Wait()
	g.logger.Info("BusPro gateway stopped")
}

// TransportReady reports whether the UDP socket is bound.
func (g *Gateway) TransportReady() bool {
	return g.transport.Ready()
}

// SendTarget returns the current TX host and port.
func (g *Gateway) SendTarget() (string, int) {
	return g.transport.SendTarget()
}

// LastRX returns the source of the last received frame.
func (g *Gateway) LastRX() string {
	return g.transport.LastRX()
}

// --- Lights ---

// BrightnessToPercent maps platform brightness (0..255) to the bus percent
// scale. Any non-zero brightness sends at least 1%.
func BrightnessToPercent(brightness int) int {
	if brightness <= 0 {
		return 0
	}
	if brightness > 255 {
		brightness = 255
	}
	pct := int(math.Round(float64(brightness) * 100 / 255))
	if pct < 1 {
		pct = 1
	}
	return pct
}

// PercentToBrightness maps bus percent (0..100) to platform brightness.
func PercentToBrightness(percent int) int {
	if percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(math.Round(float64(percent) * 255 / 100))
}

// EnsureLight registers a light channel for state tracking and polling.
func (g *Gateway) EnsureLight(addr ChannelAddress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lights[addr]; !ok {
		g.lights[addr] = &LightState{}
	}
}

// SetLight queues a light command.
//
// Parameters:
//   - addr: Light channel address
//   - on: Desired on/off state
//   - brightness: Platform brightness 0..255, nil to turn on at full level
//
// Returns:
//   - error: ErrTransportNotReady if the UDP socket is not bound
func (g *Gateway) SetLight(addr ChannelAddress, on bool, brightness *int) error {
	if !g.transport.Ready() {
		return ErrTransportNotReady
	}
	g.EnsureLight(addr)

	percent := 0
	if on {
		if brightness == nil {
			percent = 100
		} else {
			percent = BrightnessToPercent(*brightness)
		}
	}

	g.scheduler.Enqueue(addr, JobLight, func() {
		g.sendChannelControl(addr, percent)
	})
	return nil
}

// ReadLightStatus queues a channel status read for the light's module.
func (g *Gateway) ReadLightStatus(addr ChannelAddress) {
	g.EnsureLight(addr)
	g.scheduler.Enqueue(addr, JobRead, func() {
		tg := NewTelegram(addr.DeviceAddress(), OpReadStatusOfChannels, nil)
		if err := g.transport.Send(tg); err != nil {
			g.logger.Debug("read_status send failed", "addr", addr.String(), "error", err)
		}
	})
}

// sendChannelControl transmits a SingleChannelControl telegram.
// Runs on the scheduler dispatcher goroutine.
func (g *Gateway) sendChannelControl(addr ChannelAddress, percent int) {
	payload := []byte{addr.Channel, byte(percent), 0, 0}
	tg := NewTelegram(addr.DeviceAddress(), OpSingleChannelControl, payload)
	if err := g.transport.Send(tg); err != nil {
		g.logger.Warn("light command send failed", "addr", addr.String(), "error", err)
	}
}

// LightStates returns a snapshot of all tracked light states.
func (g *Gateway) LightStates() map[ChannelAddress]LightState {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[ChannelAddress]LightState, len(g.lights))
	for addr, st := range g.lights {
		out[addr] = *st
	}
	return out
}

// --- Covers ---

// EnsureCover registers a cover engine, creating it on first use.
//
// Travel times and start delay are applied only when positive, so calling
// with zero values never overwrites saved calibration.
func (g *Gateway) EnsureCover(addr ChannelAddress, upTime, downTime, startDelay float64) *Cover {
	g.mu.Lock()
	c, ok := g.covers[addr]
	if !ok {
		c = newCover(addr, coverHooks{
			sendControl:         func(status int) { g.sendCoverControl(addr, status) },
			enqueueStopSequence: func() { g.enqueueStopSequence(addr) },
			enqueueRead:         func() { g.ReadCoverStatus(addr) },
			emit:                func(st CoverState) { g.emitCover(addr, st) },
			pacing:              g.scheduler.Interval(),
		})
		g.covers[addr] = c
	}
	g.mu.Unlock()

	c.Configure(upTime, downTime, startDelay)
	return c
}

// CoverOpen queues a full OPEN (position 100) with auto-stop.
func (g *Gateway) CoverOpen(addr ChannelAddress) error {
	return g.CoverSetPosition(addr, 100)
}

// CoverClose queues a full CLOSE (position 0) with auto-stop.
func (g *Gateway) CoverClose(addr ChannelAddress) error {
	return g.CoverSetPosition(addr, 0)
}

// CoverSetPosition queues a position command for the cover.
//
// Returns:
//   - error: ErrTransportNotReady if the UDP socket is not bound
func (g *Gateway) CoverSetPosition(addr ChannelAddress, position int) error {
	if !g.transport.Ready() {
		return ErrTransportNotReady
	}
	c := g.EnsureCover(addr, 0, 0, 0)
	g.scheduler.Enqueue(addr, JobSetPosition, func() {
		c.performSetPosition(position)
	})
	return nil
}

// CoverStop queues a STOP. It preempts any queued motion command for the
// same cover.
func (g *Gateway) CoverStop(addr ChannelAddress) error {
	if !g.transport.Ready() {
		return ErrTransportNotReady
	}
	c := g.EnsureCover(addr, 0, 0, 0)
	g.scheduler.Enqueue(addr, JobStop, func() {
		c.performStop()
	})
	return nil
}

// CoverOpenRaw queues a bus OPEN without position logic or auto-stop.
// Used by the no-% entities and by calibration.
func (g *Gateway) CoverOpenRaw(addr ChannelAddress) error {
	return g.coverRaw(addr, CoverStatusOpen)
}

// CoverCloseRaw queues a bus CLOSE without position logic or auto-stop.
func (g *Gateway) CoverCloseRaw(addr ChannelAddress) error {
	return g.coverRaw(addr, CoverStatusClose)
}

// CoverStopRaw queues a bus STOP without touching the state machine.
func (g *Gateway) CoverStopRaw(addr ChannelAddress) error {
	return g.coverRaw(addr, CoverStatusStop)
}

func (g *Gateway) coverRaw(addr ChannelAddress, status int) error {
	if !g.transport.Ready() {
		return ErrTransportNotReady
	}
	g.EnsureCover(addr, 0, 0, 0)
	kind := JobMotion
	if status == CoverStatusStop {
		kind = JobStop
	}
	g.scheduler.Enqueue(addr, kind, func() {
		g.sendCoverControl(addr, status)
	})
	return nil
}

// ReadCoverStatus queues a cover status read.
func (g *Gateway) ReadCoverStatus(addr ChannelAddress) {
	g.scheduler.Enqueue(addr, JobRead, func() {
		tg := NewTelegram(addr.DeviceAddress(), OpReadStatusOfCurtainSwitch, []byte{addr.Channel})
		if err := g.transport.Send(tg); err != nil {
			g.logger.Debug("cover read_status send failed", "addr", addr.String(), "error", err)
		}
	})
}

// sendCoverControl transmits a CurtainSwitchControl telegram.
// Runs on the scheduler dispatcher goroutine.
func (g *Gateway) sendCoverControl(addr ChannelAddress, status int) {
	payload := []byte{addr.Channel, byte(status)}
	tg := NewTelegram(addr.DeviceAddress(), OpCurtainSwitchControl, payload)
	if err := g.transport.Send(tg); err != nil {
		g.logger.Warn("cover command send failed", "addr", addr.String(), "error", err)
	}
}

// enqueueStopSequence queues the double-STOP + read that follows a deadline
// auto-stop.
func (g *Gateway) enqueueStopSequence(addr ChannelAddress) {
	g.mu.Lock()
	c := g.covers[addr]
	g.mu.Unlock()
	if c == nil {
		return
	}
	g.scheduler.Enqueue(addr, JobStop, func() {
		c.sendStopSequence()
	})
}

// CoverStates returns a snapshot of all cover states.
func (g *Gateway) CoverStates() map[ChannelAddress]CoverState {
	g.mu.Lock()
	covers := make(map[ChannelAddress]*Cover, len(g.covers))
	for addr, c := range g.covers {
		covers[addr] = c
	}
	g.mu.Unlock()

	out := make(map[ChannelAddress]CoverState, len(covers))
	for addr, c := range covers {
		out[addr] = c.State()
	}
	return out
}

// --- Calibration ---

// CalibrationStart begins a travel-time measurement: the cover is driven
// with a raw command (no auto-stop) and the wall clock starts.
//
// Parameters:
//   - addr: Cover channel address
//   - direction: CoverStatusOpen or CoverStatusClose
func (g *Gateway) CalibrationStart(addr ChannelAddress, direction int) error {
	if direction != CoverStatusOpen && direction != CoverStatusClose {
		return fmt.Errorf("calibration direction must be open(1) or close(2), got %d", direction)
	}

	var err error
	if direction == CoverStatusOpen {
		err = g.CoverOpenRaw(addr)
	} else {
		err = g.CoverCloseRaw(addr)
	}
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.calib[addr] = CalibrationRun{Direction: direction, StartedAt: time.Now()}
	g.mu.Unlock()
	return nil
}

// CalibrationEnd stops the cover and returns the measured travel time.
//
// Returns:
//   - int: Direction of the measured run
//   - float64: Elapsed seconds between start and end press
//   - error: If no calibration is in progress for the address
func (g *Gateway) CalibrationEnd(addr ChannelAddress) (int, float64, error) {
	g.mu.Lock()
	run, ok := g.calib[addr]
	delete(g.calib, addr)
	g.mu.Unlock()

	if !ok {
		return 0, 0, fmt.Errorf("no calibration in progress for %s", addr)
	}

	if err := g.CoverStopRaw(addr); err != nil {
		return 0, 0, err
	}

	elapsed := time.Since(run.StartedAt).Seconds()
	return run.Direction, elapsed, nil
}

// --- Dispatch ---

// knownOpcode reports whether the gateway has a handler for the opcode.
func knownOpcode(op uint16) bool {
	switch op {
	case OpSingleChannelControl, OpSingleChannelControlResponse,
		OpReadStatusOfChannels, OpReadStatusOfChannelsResponse,
		OpCurtainSwitchControl, OpCurtainSwitchControlResponse,
		OpReadStatusOfCurtainSwitch, OpCurtainSwitchStatusResponse:
		return true
	}
	_, ok := sensorDecoders[op]
	return ok
}

// handleFrame demultiplexes a received telegram.
// Runs on the receive goroutine; per-device work only takes short locks.
func (g *Gateway) handleFrame(t Telegram, raw []byte, _ *net.UDPAddr) {
	known := knownOpcode(t.OpCode)
	g.sniffer.OnTelegram(t, raw, known)

	switch t.OpCode {
	case OpCurtainSwitchControl, OpCurtainSwitchControlResponse, OpCurtainSwitchStatusResponse:
		g.dispatchCover(t)

	case OpSingleChannelControlResponse:
		g.handleChannelResponse(t)

	case OpReadStatusOfChannelsResponse:
		g.handleChannelsStatus(t)

	default:
		if readings, ok := DecodeSensorTelegram(t); ok {
			for _, r := range readings {
				if g.onReading != nil {
					g.onReading(r)
				}
			}
			return
		}
		if !known {
			g.logger.Debug("unhandled telegram",
				"op", fmt.Sprintf("raw:0x%04x", t.OpCode),
				"source", t.Source.String(),
			)
		}
	}
}

// dispatchCover routes a cover telegram to engines on the source module.
func (g *Gateway) dispatchCover(t Telegram) {
	g.mu.Lock()
	targets := make([]*Cover, 0, 2)
	for addr, c := range g.covers {
		if addr.DeviceAddress() == t.Source {
			targets = append(targets, c)
		}
	}
	g.mu.Unlock()

	for _, c := range targets {
		c.HandleTelegram(t.OpCode, t.Payload)
	}
}

// handleChannelResponse updates light state from a SingleChannelControlResponse
// (payload: channel, success, percent).
func (g *Gateway) handleChannelResponse(t Telegram) {
	if len(t.Payload) < 3 {
		return
	}
	addr := ChannelAddress{Subnet: t.Source.Subnet, Device: t.Source.Device, Channel: t.Payload[0]}
	percent := int(t.Payload[2])
	g.updateLight(addr, percent)
}

// handleChannelsStatus updates light states from a ReadStatusOfChannelsResponse
// (payload: count, level per channel starting at 1).
func (g *Gateway) handleChannelsStatus(t Telegram) {
	if len(t.Payload) < 1 {
		return
	}
	count := int(t.Payload[0])
	for ch := 1; ch <= count && ch < len(t.Payload); ch++ {
		addr := ChannelAddress{Subnet: t.Source.Subnet, Device: t.Source.Device, Channel: uint8(ch)}
		g.mu.Lock()
		_, tracked := g.lights[addr]
		g.mu.Unlock()
		if tracked {
			g.updateLight(addr, int(t.Payload[ch]))
		}
	}
}

// updateLight stores a light's bus percent and notifies the listener.
func (g *Gateway) updateLight(addr ChannelAddress, percent int) {
	st := LightState{
		On:         percent > 0,
		Brightness: PercentToBrightness(percent),
	}

	g.mu.Lock()
	g.lights[addr] = &st
	g.mu.Unlock()

	if g.onLight != nil {
		g.onLight(addr, st)
	}
}

// emitCover notifies the cover state listener.
func (g *Gateway) emitCover(addr ChannelAddress, st CoverState) {
	if g.onCover != nil {
		g.onCover(addr, st)
	}
}

// --- Workers ---

// pollLoop emits read_status requests: every ~2 s for moving covers (unless
// their stop deadline is near) and at the idle interval for everything else.
func (g *Gateway) pollLoop() {
	defer g.wg.Done()

	fast := time.NewTicker(movingPollInterval)
	slow := time.NewTicker(g.pollInterval)
	defer fast.Stop()
	defer slow.Stop()

	for {
		select {
		case <-g.done:
			return

		case <-fast.C:
			g.mu.Lock()
			covers := make(map[ChannelAddress]*Cover, len(g.covers))
			for addr, c := range g.covers {
				covers[addr] = c
			}
			g.mu.Unlock()

			for addr, c := range covers {
				isMoving, nearDeadline := c.moving()
				if isMoving && !nearDeadline {
					g.ReadCoverStatus(addr)
				}
			}

		case <-slow.C:
			g.mu.Lock()
			lightAddrs := make([]ChannelAddress, 0, len(g.lights))
			for addr := range g.lights {
				lightAddrs = append(lightAddrs, addr)
			}
			coverAddrs := make([]ChannelAddress, 0, len(g.covers))
			for addr, c := range g.covers {
				if moving, _ := c.moving(); !moving {
					coverAddrs = append(coverAddrs, addr)
				}
			}
			g.mu.Unlock()

			for _, addr := range lightAddrs {
				g.ReadLightStatus(addr)
			}
			for _, addr := range coverAddrs {
				g.ReadCoverStatus(addr)
			}
		}
	}
}

// motionTickLoop broadcasts interpolated positions while any cover moves,
// so the UI animates even when the bus is silent.
func (g *Gateway) motionTickLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(motionTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.mu.Lock()
			covers := make(map[ChannelAddress]*Cover, len(g.covers))
			for addr, c := range g.covers {
				covers[addr] = c
			}
			g.mu.Unlock()

			for addr, c := range covers {
				if moving, _ := c.moving(); moving {
					g.emitCover(addr, c.State())
				}
			}
		}
	}
}
