package system

import (
	"context"
	"log"
	"time"

	"github.com/VictorChenLi/raspberry-pi-status/command"
)

// PowerController performs OS shutdown and reboot. HTTP handlers respond
// before the deferred action runs, so failures here are logged only and
// never show up in the response.
type PowerController struct {
	runner command.Runner
	delay  time.Duration
}

func NewPowerController(runner command.Runner, delay time.Duration) *PowerController {
	return &PowerController{runner: runner, delay: delay}
}

// Shutdown powers the host off immediately.
func (p *PowerController) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := p.runner.Run(ctx, "sudo", "shutdown", "-h", "now")
	return err
}

// Reboot restarts the host immediately.
func (p *PowerController) Reboot() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := p.runner.Run(ctx, "sudo", "reboot")
	return err
}

// DeferShutdown runs Shutdown after the configured delay so the HTTP
// response gets out first.
func (p *PowerController) DeferShutdown() {
	time.AfterFunc(p.delay, func() {
		log.Println("[POWER] Executing deferred shutdown")
		if err := p.Shutdown(); err != nil {
			log.Printf("[POWER] Shutdown failed: %v", err)
		}
	})
}

// DeferReboot runs Reboot after the configured delay.
func (p *PowerController) DeferReboot() {
	time.AfterFunc(p.delay, func() {
		log.Println("[POWER] Executing deferred reboot")
		if err := p.Reboot(); err != nil {
			log.Printf("[POWER] Reboot failed: %v", err)
		}
	})
}
