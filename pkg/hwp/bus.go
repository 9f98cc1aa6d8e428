// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Pin is the single GPIO line the bus engine drives. The host wires a
// concrete implementation (and delivers edge interrupts into OnEdge); the
// engine only switches direction and writes levels.
type Pin interface {
	SetInput()
	SetOutput()
	Write(level bool)
}

// ErrPassiveMode is returned by Control while passive mode suppresses
// all transmissions.
var ErrPassiveMode = errors.New("passive mode: transmissions suppressed")

// ErrNothingToSend is returned by Control when no registry entry derived
// an outbound frame from the call.
var ErrNothingToSend = errors.New("no changes to send")

// BusConfig carries the orchestrator's tunables. The zero value gives
// the production timings; tests shrink them.
type BusConfig struct {
	// TransmitCount is the number of copies per command burst.
	TransmitCount int
	// Passive suppresses all transmissions from the start.
	Passive bool
	// TxWarmup delays the first transmit attempt after setup.
	TxWarmup time.Duration
	// TxTick is the transmit worker's poll interval.
	TxTick time.Duration
	// RxPopTimeout bounds the receive worker's blocking pop.
	RxPopTimeout time.Duration
	// Throttle is the minimum interval between transmit bursts.
	Throttle time.Duration
	// ControllerPeriod is the keypad's expected frame cadence.
	ControllerPeriod time.Duration
	// PulseQueueSize bounds the edge-capture ring.
	PulseQueueSize int
	// TxQueueSize bounds the outbound frame queue.
	TxQueueSize int

	// Logf receives debug output; nil silences it.
	Logf func(format string, args ...any)
	// Status receives momentary status strings with a display duration.
	Status func(msg string, d time.Duration)
	// Stats, when set, is fed every decode outcome.
	Stats *Statistics
	// OnFrame, when set, observes every dispatched frame.
	OnFrame func(f Frame, changed bool)

	// Now and Sleep exist for tests; nil selects the real clock.
	Now   func() time.Time
	Sleep func(d time.Duration)
	// Debug enables pulse-level logging.
	Debug bool
}

func (c *BusConfig) applyDefaults() {
	if c.TransmitCount <= 0 {
		c.TransmitCount = DefaultTransmitCount
	}
	if c.TxWarmup == 0 {
		c.TxWarmup = 15 * time.Second
	}
	if c.TxTick <= 0 {
		c.TxTick = 1500 * time.Millisecond
	}
	if c.RxPopTimeout <= 0 {
		c.RxPopTimeout = 120 * time.Millisecond
	}
	if c.Throttle <= 0 {
		c.Throttle = DelayBetweenMessages
	}
	if c.ControllerPeriod <= 0 {
		c.ControllerPeriod = DelayBetweenControllerMessages
	}
	if c.PulseQueueSize <= 0 {
		// Holds well over a dozen complete long frames' worth of edge
		// pairs before the framer has to resynchronize.
		c.PulseQueueSize = 2048
	}
	if c.TxQueueSize <= 0 {
		c.TxQueueSize = 8
	}
	if c.Logf == nil {
		c.Logf = func(string, ...any) {}
	}
	if c.Status == nil {
		c.Status = func(string, time.Duration) {}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// Bus owns the whole engine: the edge capture path, the decoder, the
// registry, the canonical state, and the two workers. One Bus drives one
// NET port wire.
type Bus struct {
	cfg      BusConfig
	pin      Pin
	registry *Registry
	data     *HeatPumpData
	decoder  *Decoder

	pulseQueue *Queue[Pulse]
	txQueue    *Queue[Packet]

	mode         atomic.Int32
	passive      atomic.Bool
	updateActive atomic.Bool
	// receiving mirrors the decoder's started flag for the transmit
	// worker, which must not touch the decoder itself.
	receiving atomic.Bool

	// decMu serializes decoder access between the receive worker and
	// the transmit worker's reset on direction changes.
	decMu sync.Mutex

	// Edge pairing state, shared between the interrupt path and the
	// receive worker's idle-timeout probe.
	pendingMu  sync.Mutex
	pending    Pulse
	lastEdgeAt time.Time

	// Transmit scheduling state. prevControllerAt is written by the
	// receive worker and read by the transmit worker.
	schedMu          sync.Mutex
	controllerSeen   bool
	prevControllerAt time.Time
	prevSentAt       time.Time
	hasPrevSent      bool
	startedAt        time.Time

	pulseLog PulseLog

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewBus creates a bus engine on the given pin.
func NewBus(pin Pin, cfg BusConfig) *Bus {
	cfg.applyDefaults()
	b := &Bus{
		cfg:        cfg,
		pin:        pin,
		registry:   NewRegistry(),
		data:       &HeatPumpData{},
		decoder:    NewDecoder(),
		pulseQueue: NewQueue[Pulse](cfg.PulseQueueSize),
		txQueue:    NewQueue[Packet](cfg.TxQueueSize),
	}
	b.passive.Store(cfg.Passive)
	return b
}

// Setup arms the pin for reception and starts the receive and transmit
// workers. They run until the context is canceled; an in-flight transmit
// burst always completes first.
func (b *Bus) Setup(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.schedMu.Lock()
	b.startedAt = b.cfg.Now()
	b.schedMu.Unlock()
	b.startReceive()
	b.wg.Add(2)
	go b.rxWorker(ctx)
	go b.txWorker(ctx)
}

// Close stops both workers and waits for them.
func (b *Bus) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Data returns the canonical heat-pump state. Only the receive worker
// mutates it; reads between polls may tear but every field is an
// independently assignable pointer.
func (b *Bus) Data() *HeatPumpData { return b.data }

// Registry returns the frame catalog.
func (b *Bus) Registry() *Registry { return b.registry }

// Mode returns the current bus direction.
func (b *Bus) Mode() BusMode { return BusMode(b.mode.Load()) }

// SetPassiveMode toggles suppression of all transmissions.
func (b *Bus) SetPassiveMode(on bool) { b.passive.Store(on) }

// PassiveMode reports whether transmissions are suppressed.
func (b *Bus) PassiveMode() bool { return b.passive.Load() }

// SetUpdateActive toggles downstream mirroring.
func (b *Bus) SetUpdateActive(on bool) { b.updateActive.Store(on) }

// UpdateActive reports whether downstream mirroring is on.
func (b *Bus) UpdateActive() bool { return b.updateActive.Load() }

// PulseDrops returns how many edge pairs the capture ring discarded.
func (b *Bus) PulseDrops() uint64 { return b.pulseQueue.Dropped() }

// OnEdge is the interrupt path. The host calls it on every GPIO edge
// with the new line level and the edge time. It is allocation-free:
// half-periods are paired into the pending pulse and pushed into the
// capture ring; edges during transmit are discarded.
func (b *Bus) OnEdge(level bool, now time.Time) {
	if b.Mode() == BusModeTX {
		return
	}
	b.pendingMu.Lock()
	elapsed := now.Sub(b.lastEdgeAt)
	if b.pending.Dur0 == 0 && level {
		b.pending.Level0 = !level
		b.pending.Dur0 = elapsed
	} else if b.pending.Dur0 > 0 {
		b.pending.Level1 = !level
		b.pending.Dur1 = elapsed
		p := b.pending
		b.pending = Pulse{}
		b.pendingMu.Unlock()
		b.pulseQueue.Enqueue(p)
		b.pendingMu.Lock()
	}
	b.lastEdgeAt = now
	b.pendingMu.Unlock()
}

// rxWorker drains the capture ring into the decoder. When the ring stays
// empty while a frame is in progress and the line has idled past the
// frame-end threshold, it synthesizes the frame-end event the interrupt
// path will never deliver.
func (b *Bus) rxWorker(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pulse, ok := b.pulseQueue.Dequeue(b.cfg.RxPopTimeout)
		if ok {
			if b.Mode() != BusModeRX {
				continue
			}
			b.decMu.Lock()
			b.processPulse(&pulse)
			if b.decoder.IsComplete() {
				b.finalizeFrame(false)
			}
			b.decMu.Unlock()
			continue
		}
		b.idleCheck()
	}
}

// idleCheck synthesizes a frame-end pulse after bus silence.
func (b *Bus) idleCheck() {
	if b.Mode() != BusModeRX || !b.receiving.Load() {
		return
	}
	b.pendingMu.Lock()
	stale := b.pending.Dur0 > 0 && b.cfg.Now().Sub(b.lastEdgeAt) > FrameEndThreshold
	var pulse Pulse
	if stale {
		pulse = b.pending
		b.pending = Pulse{}
	}
	b.pendingMu.Unlock()
	if !stale {
		return
	}
	b.cfg.Logf("bus timeout, synthesizing frame end: %s", pulse.Format())
	b.decMu.Lock()
	b.processPulse(&pulse)
	if b.decoder.IsComplete() {
		b.finalizeFrame(true)
	} else if b.decoder.IsStarted() {
		b.cfg.Logf("incomplete frame at idle: %s", b.decoder.DebugString())
		b.countReset()
		b.resetDecoder()
		b.flushPulseLog()
	}
	b.decMu.Unlock()
}

// processPulse advances the framer state machine by one classified edge
// pair.
func (b *Bus) processPulse(p *Pulse) {
	if b.cfg.Debug {
		b.pulseLog.Append(p)
	}
	if p.IsStartFrame() {
		if b.decoder.IsComplete() {
			b.finalizeFrame(false)
		} else if b.decoder.IsStarted() && b.decoder.Length() > 0 {
			b.cfg.Logf("preamble over incomplete frame: %s", b.decoder.DebugString())
			b.countReset()
		}
		b.pulseLog.Reset()
		b.decoder.StartNewFrame()
		b.receiving.Store(true)
		return
	}
	if !b.decoder.IsStarted() {
		return
	}
	long := p.IsLongBit()
	short := p.IsShortBit()
	switch {
	case long || short:
		b.decoder.AppendBit(long)
	case p.IsFrameEnd():
		if b.decoder.IsComplete() {
			b.finalizeFrame(true)
		} else if b.decoder.Length() > 0 {
			b.cfg.Logf("bus idle with incomplete frame (%d bytes)", b.decoder.Length())
			b.countReset()
			b.resetDecoder()
			b.flushPulseLog()
		}
	default:
		// Out-of-tolerance width, usually a collision.
		if b.decoder.IsComplete() {
			b.finalizeFrame(true)
			b.pulseLog.Reset()
		} else {
			b.cfg.Logf("invalid pulse width (high %dus / low %dus)",
				p.HighDuration().Microseconds(), p.LowDuration().Microseconds())
			b.countReset()
			b.resetDecoder()
			b.flushPulseLog()
		}
	}
}

// finalizeFrame validates the in-progress frame, dispatches it through
// the registry, and resets the decoder.
func (b *Bus) finalizeFrame(timeout bool) {
	now := b.cfg.Now()
	pkt, src, ok := b.decoder.Finalize(now)
	if !ok {
		if timeout {
			b.flushPulseLog()
			b.countChecksumError()
			b.resetDecoder()
		}
		return
	}
	frame, changed := b.registry.Process(pkt, src, now, b.data)
	if b.cfg.Stats != nil {
		b.cfg.Stats.CountFrame(pkt.Type(), src)
	}
	if changed {
		prev, _ := frame.PrevRawPacket()
		prevRef := &prev
		if prev.Len == 0 {
			prevRef = nil
		}
		b.cfg.Logf("%s%s", HeaderFormat("Chg", frame.RawPacket(), prevRef,
			frame.TypeString(), src, frame.FrameAge()), frame.Format(false))
	}
	if src == SourceController {
		b.schedMu.Lock()
		b.controllerSeen = true
		b.prevControllerAt = now
		b.schedMu.Unlock()
	}
	if b.cfg.OnFrame != nil {
		b.cfg.OnFrame(frame, changed)
	}
	b.resetDecoder()
	b.pulseLog.Reset()
}

func (b *Bus) countReset() {
	if b.cfg.Stats != nil {
		b.cfg.Stats.FramerResets++
	}
}

func (b *Bus) countChecksumError() {
	if b.cfg.Stats != nil {
		b.cfg.Stats.ChecksumErrors++
	}
}

// resetDecoder resets the framer and clears the receiving mirror.
func (b *Bus) resetDecoder() {
	b.decoder.Reset()
	b.receiving.Store(false)
}

func (b *Bus) flushPulseLog() {
	if b.cfg.Debug && b.pulseLog.Len() > 0 {
		b.cfg.Logf("%s", b.pulseLog.String())
	}
	b.pulseLog.Reset()
}

// HasController reports whether a keypad controller has ever been seen
// on the bus.
func (b *Bus) HasController() bool {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	return b.controllerSeen
}

// IsControllerTimeout reports whether the controller has missed its
// cadence by half a period, which usually means it was disconnected.
func (b *Bus) IsControllerTimeout() bool {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	if !b.controllerSeen {
		return false
	}
	deadline := b.prevControllerAt.Add(b.cfg.ControllerPeriod + b.cfg.ControllerPeriod/2)
	return b.cfg.Now().After(deadline)
}

// NextControllerPacket estimates when the next keypad frame is due.
// Before the first observation the keypad is assumed to fire within one
// period of startup.
func (b *Bus) NextControllerPacket() (time.Time, bool) {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	if b.controllerSeen {
		return b.prevControllerAt.Add(b.cfg.ControllerPeriod), true
	}
	if b.cfg.Now().Sub(b.startedAt) < b.cfg.ControllerPeriod {
		return b.startedAt.Add(b.cfg.ControllerPeriod), true
	}
	return time.Time{}, false
}

// IsTimeForNext reports whether the inter-transmit throttle window has
// elapsed.
func (b *Bus) IsTimeForNext() bool {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	return !b.hasPrevSent || !b.prevSentAt.Add(b.cfg.Throttle).After(b.cfg.Now())
}

// hasTimeToSend checks the collision-avoidance precondition: the whole
// burst must land before the next expected controller frame, unless the
// controller is absent or timed out.
func (b *Bus) hasTimeToSend() bool {
	if b.HasController() && b.IsControllerTimeout() {
		return true
	}
	next, ok := b.NextControllerPacket()
	if !ok {
		return true
	}
	endOfTransmit := b.cfg.Now().Add(time.Duration(b.cfg.TransmitCount) * SingleFrameMaxDuration)
	return endOfTransmit.Before(next)
}

// txWorker polls the outbound queue and runs the transmit scheduler when
// its preconditions hold.
func (b *Bus) txWorker(ctx context.Context) {
	defer b.wg.Done()
	select {
	case <-ctx.Done():
		return
	case <-time.After(b.cfg.TxWarmup):
	}
	ticker := time.NewTicker(b.cfg.TxTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.processSendQueue()
		}
	}
}

// processSendQueue dequeues and transmits one outbound frame once every
// precondition holds; otherwise it yields until the next tick.
func (b *Bus) processSendQueue() {
	if !b.txQueue.HasNext() {
		return
	}
	if b.receiving.Load() {
		b.cfg.Logf("frame being received, delaying transmit")
		return
	}
	if !b.IsTimeForNext() {
		b.cfg.Logf("transmit throttled, waiting")
		return
	}
	if !b.hasTimeToSend() {
		b.cfg.Logf("no time to send before next keypad frame, waiting")
		return
	}
	pkt, ok := b.txQueue.TryDequeue()
	if !ok {
		return
	}
	b.cfg.Logf("%s", HeaderFormat("SEND", pkt, nil, fmt.Sprintf("TYPE_%02X   ", pkt.Type()), SourceLocal, 0))
	b.transmit(&pkt)
}

// transmit bit-bangs one command burst: TransmitCount copies of the
// frame, each preceded by the preamble, with the keypad's frame spacing
// between repeats and the group spacing after the last. The bus mode
// masks the interrupt path for the duration; afterwards the engine
// returns to receive.
func (b *Bus) transmit(pkt *Packet) {
	b.mode.Store(int32(BusModeTX))
	b.decMu.Lock()
	b.resetDecoder()
	b.pulseLog.Reset()
	b.decMu.Unlock()
	b.pin.SetOutput()

	for repeat := b.cfg.TransmitCount; repeat > 0; repeat-- {
		b.sendLow(FrameHeadingLowDuration)
		b.sendHigh(FrameHeadingHighDuration)
		for _, by := range pkt.Bytes() {
			for bit := 0; bit < 8; bit++ {
				b.sendLow(BitLowDuration)
				if by>>bit&1 != 0 {
					b.sendHigh(BitLongHighDuration)
				} else {
					b.sendHigh(BitShortHighDuration)
				}
			}
		}
		if repeat > 1 {
			b.sendLow(BitLowDuration)
			b.sendHigh(ControllerFrameSpacing)
		}
	}
	b.sendLow(BitLowDuration)
	b.sendHigh(ControllerGroupSpacing)

	b.schedMu.Lock()
	b.prevSentAt = b.cfg.Now()
	b.hasPrevSent = true
	b.schedMu.Unlock()
	b.startReceive()
}

func (b *Bus) sendLow(d time.Duration) {
	b.pin.Write(false)
	b.cfg.Sleep(d)
}

func (b *Bus) sendHigh(d time.Duration) {
	b.pin.Write(true)
	b.cfg.Sleep(d)
}

// startReceive re-arms the line for reception.
func (b *Bus) startReceive() {
	b.decMu.Lock()
	b.resetDecoder()
	b.decMu.Unlock()
	b.pin.SetInput()
	b.pendingMu.Lock()
	b.pending = Pulse{}
	b.lastEdgeAt = b.cfg.Now()
	b.pendingMu.Unlock()
	b.mode.Store(int32(BusModeRX))
}

// Control walks the registry with the call and enqueues every derived
// outbound frame. Passive mode suppresses the queueing and reports
// ErrPassiveMode; rejected field values surface as an error either way.
func (b *Bus) Control(call *Call) error {
	call.attachData(b.data)
	packets := b.registry.Control(call)
	if len(call.Rejections()) > 0 {
		msg := call.Rejections()[0]
		b.cfg.Status(msg, 5*time.Second)
		return errors.New(msg)
	}
	if b.PassiveMode() {
		b.cfg.Status("Passive mode. Ignoring changes", 5*time.Second)
		return ErrPassiveMode
	}
	if len(packets) == 0 {
		if len(call.Warnings()) > 0 {
			b.cfg.Status(call.Warnings()[0], 5*time.Second)
		}
		return ErrNothingToSend
	}
	for _, pkt := range packets {
		b.txQueue.Enqueue(pkt)
	}
	return nil
}

// DeriveFrames walks the registry with the call and returns the
// outbound frames it would transmit, without queueing them.
func (b *Bus) DeriveFrames(call *Call) []Packet {
	call.attachData(b.data)
	return b.registry.Control(call)
}

// QueueFrame enqueues a raw outbound frame, bypassing the registry.
func (b *Bus) QueueFrame(pkt Packet) { b.txQueue.Enqueue(pkt) }

// InjectPulse feeds an already-paired pulse record into the capture
// ring, for hosts whose capture hardware delivers whole pairs (a logic
// probe or a replay file) instead of raw edges.
func (b *Bus) InjectPulse(p Pulse) { b.pulseQueue.Enqueue(p) }

// Traits aggregates the capability set across the catalog.
func (b *Bus) Traits() Traits { return b.registry.Traits(b.data) }

// Poll mirrors the engine state for downstream consumers: it reports
// whether the heater has gone silent and surfaces momentary bus errors.
// It returns the current connection status string.
func (b *Bus) Poll() string {
	if b.Mode() == BusModeError {
		b.cfg.Status("Bus Error", 5*time.Second)
	}
	if b.IsHeaterOffline() {
		b.cfg.Status("Heater offline", 5*time.Second)
		return "Waiting for heater"
	}
	if b.data.LastHeaterFrame == nil {
		return "Waiting for heater"
	}
	return "Connected to heater"
}

// IsHeaterOffline reports whether no heater frame arrived within the
// offline threshold.
func (b *Bus) IsHeaterOffline() bool {
	if b.data.LastHeaterFrame == nil {
		b.schedMu.Lock()
		started := b.startedAt
		b.schedMu.Unlock()
		return b.cfg.Now().Sub(started) > HeaterOfflineThreshold
	}
	return b.cfg.Now().Sub(*b.data.LastHeaterFrame) > HeaterOfflineThreshold
}
