package gpu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// sample is the most recent power/performance reading for one GPU.
type sample struct {
	power  float64
	pstate int
}

// Monitor implements daemon mode. Locked clocks make an idle GPU consume
// more energy, so the monitor tails the power draw of the affected GPUs
// and keeps the undervolt on only while a card draws more than its
// profile threshold.
type Monitor struct {
	ctrl    *Controller
	devices []Device

	poll   time.Duration
	action time.Duration

	mu          sync.Mutex
	samples     map[int]sample
	undervolted map[int]bool
}

func NewMonitor(ctrl *Controller, devices []Device, poll, action time.Duration) *Monitor {
	return &Monitor{
		ctrl:        ctrl,
		devices:     devices,
		poll:        poll,
		action:      action,
		samples:     make(map[int]sample),
		undervolted: make(map[int]bool),
	}
}

// Run blocks until ctx is cancelled. On shutdown every affected GPU is
// restored to default clocks.
func (m *Monitor) Run(ctx context.Context, w io.Writer) error {
	stream := m.ctrl.exec.ExecuteStream(ctx, smiCommand,
		"--query-gpu=index,power.draw,pstate",
		"--format=csv,noheader",
		fmt.Sprintf("--loop-ms=%d", m.poll.Milliseconds()),
	)

	pipe, err := stream.StdoutPipe()
	if err != nil {
		return fmt.Errorf("cannot open power draw pipe: %w", err)
	}

	err = stream.Start()
	if err != nil {
		return fmt.Errorf("cannot start power draw query: %w", err)
	}

	go m.ingestLoop(pipe)

	fmt.Fprintln(w, "daemon initialized, press ctrl+c or send SIGTERM to stop")

	ticker := time.NewTicker(m.action)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := m.shutdown()
			_ = stream.Wait() // the query is killed by ctx cancellation
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "daemon stopped and undervolting disabled, goodbye!")

			return nil
		case <-ticker.C:
			err := m.evaluate()
			if err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) ingestLoop(pipe io.ReadCloser) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		err := m.ingest(scanner.Text())
		if err != nil {
			zlog.Sugar().Debugf("skipping power draw line: %v", err)
		}
	}
}

// ingest parses one "index, power.draw, pstate" CSV line,
// e.g. "0, 95.02 W, P2".
func (m *Monitor) ingest(line string) error {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return fmt.Errorf("unexpected field count in %q", line)
	}

	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return fmt.Errorf("invalid index in %q: %w", line, err)
	}

	power, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(fields[1]), " W"), 64)
	if err != nil {
		return fmt.Errorf("invalid power draw in %q: %w", line, err)
	}

	pstate, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(fields[2]), "P"))
	if err != nil {
		return fmt.Errorf("invalid pstate in %q: %w", line, err)
	}

	m.mu.Lock()
	m.samples[index] = sample{power: power, pstate: pstate}
	m.mu.Unlock()

	return nil
}

// evaluate applies the threshold rule once per affected GPU. GPUs without
// a sample yet or sitting in a power saving state deeper than P2 are left
// untouched.
func (m *Monitor) evaluate() error {
	m.mu.Lock()
	samples := make(map[int]sample, len(m.samples))
	for index, s := range m.samples {
		samples[index] = s
	}
	m.mu.Unlock()

	for _, device := range m.devices {
		s, ok := samples[device.Index]
		if !ok || s.pstate > 2 {
			continue
		}

		want := s.power > float64(device.Profile.Threshold)
		if want == m.undervolted[device.Index] {
			continue
		}

		if want {
			err := m.ctrl.Enable(device)
			if err != nil {
				return err
			}
		} else {
			err := m.ctrl.Disable(device)
			if err != nil {
				return err
			}
		}

		m.undervolted[device.Index] = want
	}

	return nil
}

// shutdown restores every affected GPU, even ones the monitor never
// touched, so an interrupted daemon cannot leave clocks locked.
func (m *Monitor) shutdown() error {
	var firstErr error
	for _, device := range m.devices {
		err := m.ctrl.Disable(device)
		if err != nil {
			zlog.Sugar().Errorf("cannot restore gpu %d: %v", device.Index, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
