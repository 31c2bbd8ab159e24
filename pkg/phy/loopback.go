package phy

import (
	"time"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/internal/fifo"
)

// Loopback PHY frame shapes. Duplicated locally rather than imported from
// pkg/fdl, since fdl already imports this package for the Phy interface.
const (
	loopSC  byte = 0xE5
	loopSD4 byte = 0xDC
	loopSD1 byte = 0x10
	loopSD3 byte = 0xA2
	loopSD2 byte = 0x68
)

// Loopback is a PHY that hands every sent frame straight back to the
// poller, unmodified: useful for exercising the codec and transceiver
// without a second party on the wire.
type Loopback struct {
	rx     *fifo.Fifo
	closed bool
	timing busTiming
}

func NewLoopback() *Loopback {
	l := &Loopback{rx: fifo.NewFifo(4096)}
	l.timing.setConfig(Baud500000)
	return l
}

func init() {
	RegisterPHY("loopback", func(args ...any) (Phy, error) {
		return NewLoopback(), nil
	})
}

func (l *Loopback) SetConfig(baudrate int) error {
	l.timing.setConfig(baudrate)
	l.rx.Reset()
	return nil
}

func (l *Loopback) ReleaseBus()             { l.timing.release(time.Now()) }
func (l *Loopback) ClearTxQueueAddr(byte) {}

func (l *Loopback) Close() error {
	l.closed = true
	return nil
}

func (l *Loopback) SendData(telegramData []byte, srd bool) error {
	if l.closed {
		return godpmaster.ErrPHYFatal
	}
	replyLen := 0
	if srd {
		replyLen = len(telegramData)
	}
	l.timing.allocate(time.Now(), len(telegramData), replyLen)
	l.rx.Write(telegramData)
	return nil
}

func (l *Loopback) PollData(timeout time.Duration) ([]byte, error) {
	if l.closed {
		return nil, godpmaster.ErrPHYFatal
	}
	occupied := l.rx.GetOccupied()
	if occupied == 0 {
		return nil, nil
	}
	peek := make([]byte, occupied)
	l.rx.AltBegin(0)
	got := l.rx.AltRead(peek)
	peek = peek[:got]

	size, ok := loopbackFrameSize(peek)
	if !ok || size > got {
		return nil, nil
	}
	out := make([]byte, size)
	l.rx.Read(out)
	return out, nil
}

// loopbackFrameSize mirrors fdl.SizeFromRaw's boundary rules without
// importing pkg/fdl.
func loopbackFrameSize(buf []byte) (int, bool) {
	if len(buf) < 1 {
		return 0, false
	}
	switch buf[0] {
	case loopSC:
		return 1, true
	case loopSD4:
		if len(buf) < 3 {
			return 0, false
		}
		return 3, true
	case loopSD1:
		if len(buf) < 6 {
			return 0, false
		}
		return 6, true
	case loopSD3:
		if len(buf) < 14 {
			return 0, false
		}
		return 14, true
	case loopSD2:
		if len(buf) < 4 || buf[3] != loopSD2 {
			return 0, false
		}
		le := buf[1]
		if buf[2] != le || le < 4 || le > 249 {
			return 0, false
		}
		return int(le) + 6, true
	default:
		return 0, false
	}
}
