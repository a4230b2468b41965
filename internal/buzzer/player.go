package buzzer

import (
	"log"
	"sync"
	"time"
)

// Line is the buzzer output.
type Line interface {
	SetValue(v int) error
	Close() error
}

// queueSize bounds the number of patterns waiting to play.
const queueSize = 4

// Player plays patterns one at a time on its own goroutine. Alert never
// blocks; patterns arriving while the queue is full are dropped.
type Player struct {
	line  Line
	queue chan []Step
	sleep func(time.Duration)

	mu     sync.Mutex
	played int
	drops  int
}

// NewPlayer creates a player on line.
func NewPlayer(line Line) *Player {
	return &Player{line: line, queue: make(chan []Step, queueSize), sleep: time.Sleep}
}

// SetSleep replaces the delay function. Used by tests.
func (p *Player) SetSleep(sleep func(time.Duration)) {
	p.sleep = sleep
}

// Alert queues pattern. Malformed patterns are logged and ignored.
func (p *Player) Alert(pattern string) {
	steps, err := Parse(pattern)
	if err != nil {
		log.Printf("buzzer: %v", err)
		return
	}
	select {
	case p.queue <- steps:
	default:
		p.mu.Lock()
		p.drops++
		p.mu.Unlock()
		log.Printf("buzzer: queue full, dropped %q", pattern)
	}
}

// Run plays queued patterns until done is closed. The buzzer is left off.
func (p *Player) Run(done <-chan struct{}) {
	defer p.line.SetValue(0)
	for {
		select {
		case <-done:
			return
		case steps := <-p.queue:
			p.play(steps)
		}
	}
}

func (p *Player) play(steps []Step) {
	for _, s := range steps {
		v := 0
		if s.On {
			v = 1
		}
		if err := p.line.SetValue(v); err != nil {
			log.Printf("buzzer: set line: %v", err)
			p.line.SetValue(0)
			return
		}
		p.sleep(s.Dur)
	}
	p.line.SetValue(0)
	p.mu.Lock()
	p.played++
	p.mu.Unlock()
}

// Stats returns the number of patterns played and dropped.
func (p *Player) Stats() (played, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played, p.drops
}
