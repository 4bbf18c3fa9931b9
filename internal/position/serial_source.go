package position

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/dsa_handheld/internal/gps"
)

// SerialSource reads NMEA sentences straight from a GPS receiver.
type SerialSource struct {
	emitter

	opts serial.OpenOptions
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
}

func NewSerialSource(portName string, baudRate int) *SerialSource {
	return &SerialSource{
		opts: serial.OpenOptions{
			PortName:              portName,
			BaudRate:              uint(baudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
		open: serial.Open,
	}
}

func (s *SerialSource) StartUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return
	}

	port, err := s.open(s.opts)
	if err != nil {
		s.errors.Send(fmt.Errorf("open %s: %w", s.opts.PortName, err))
		return
	}
	s.port = port
	log.Printf("position: GPS serial port opened on %s at %d baud", s.opts.PortName, s.opts.BaudRate)

	go s.readLoop(port)
}

// StopUpdates closes the port, which ends the read loop.
func (s *SerialSource) StopUpdates() {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()

	if port != nil {
		port.Close()
	}
}

func (s *SerialSource) readLoop(port io.ReadWriteCloser) {
	reader := bufio.NewReader(port)
	var acc gps.Accumulator

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			stopped := s.port != port
			if !stopped {
				s.port = nil
			}
			s.mu.Unlock()
			if !stopped {
				port.Close()
				s.errors.Send(fmt.Errorf("gps read: %w", err))
			}
			return
		}
		s.handleLine(&acc, line)
	}
}

func (s *SerialSource) handleLine(acc *gps.Accumulator, line string) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return
	}

	fix, complete := acc.Apply(sentence)
	if !complete {
		return
	}
	s.updates.Send(Update{Coordinate: CoordinateFromFix(fix), Timestamp: time.Now()})
}
