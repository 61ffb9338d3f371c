// Package rpi binds the device's physical controls, a momentary push button
// and a vibration motor, to GPIO lines on the Raspberry Pi header.
package rpi

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Default header lines on the deployed device.
const (
	DefaultButtonPin = "GPIO17"
	DefaultMotorPin  = "GPIO5"
)

var hostInitOnce sync.Once
var hostInitErr error

// initHost brings up the periph host drivers once per process.
func initHost() error {
	hostInitOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("failed to initialize gpio host: %w", err)
		}
	})
	return hostInitErr
}

// Button reads a momentary switch wired between its GPIO line and ground.
// The line is pulled up, so a press reads low.
type Button struct {
	pin gpio.PinIO
}

func NewButton(pinName string) (*Button, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	if pinName == "" {
		pinName = DefaultButtonPin
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("no gpio pin named %q", pinName)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure button pin %q: %w", pinName, err)
	}

	return &Button{pin: pin}, nil
}

// Sample reports whether the button is currently held down.
func (b *Button) Sample() (bool, error) {
	return b.pin.Read() == gpio.Low, nil
}

// Motor drives a vibration motor through a transistor on its GPIO line.
type Motor struct {
	pin gpio.PinIO
}

func NewMotor(pinName string) (*Motor, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	if pinName == "" {
		pinName = DefaultMotorPin
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("no gpio pin named %q", pinName)
	}
	// Park the motor low immediately so a crashed previous run can't leave
	// it buzzing.
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure motor pin %q: %w", pinName, err)
	}

	return &Motor{pin: pin}, nil
}

func (m *Motor) Set(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := m.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive motor pin: %w", err)
	}
	return nil
}

// Close parks the motor low.
func (m *Motor) Close() error {
	return m.Set(false)
}
