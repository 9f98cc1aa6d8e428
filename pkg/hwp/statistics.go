// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"sort"
	"time"
)

// Statistics tracks frame and error rates on the bus. The receive worker
// feeds it; display loops read it between updates.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	HeaterFrames     uint64
	ControllerFrames uint64
	ChecksumErrors   uint64
	FramerResets     uint64
	PulseDrops       uint64
	FramesByType     map[uint8]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		FramesByType:   make(map[uint8]uint64),
	}
}

// CountFrame records one successfully decoded frame.
func (s *Statistics) CountFrame(typeID uint8, src Source) {
	s.TotalFrames++
	switch src {
	case SourceHeater:
		s.HeaterFrames++
	case SourceController:
		s.ControllerFrames++
	}
	if s.FramesByType == nil {
		s.FramesByType = make(map[uint8]uint64)
	}
	s.FramesByType[typeID]++
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and error rates.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.FramerResets) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var heaterPercent, controllerPercent float64
	if s.TotalFrames > 0 {
		heaterPercent = float64(s.HeaterFrames) * 100.0 / float64(s.TotalFrames)
		controllerPercent = float64(s.ControllerFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Heater:          %8d (%.1f%%)\n", s.HeaterFrames, heaterPercent)
	result += fmt.Sprintf("Controller:      %8d (%.1f%%)\n", s.ControllerFrames, controllerPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.FramerResets > 0 {
		result += fmt.Sprintf("Framer Resets:   %8d\n", s.FramerResets)
	}
	if s.PulseDrops > 0 {
		result += fmt.Sprintf("Pulse Drops:     %8d\n", s.PulseDrops)
	}

	if len(s.FramesByType) > 0 {
		types := make([]int, 0, len(s.FramesByType))
		for t := range s.FramesByType {
			types = append(types, int(t))
		}
		sort.Ints(types)
		result += "By type:\n"
		for _, t := range types {
			result += fmt.Sprintf("  0x%02X:          %8d\n", t, s.FramesByType[uint8(t)])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.2f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.2f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters.
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.HeaterFrames = 0
	s.ControllerFrames = 0
	s.ChecksumErrors = 0
	s.FramerResets = 0
	s.PulseDrops = 0
	s.FramesByType = make(map[uint8]uint64)
	s.FrameRate = 0
	s.ErrorRate = 0
}
