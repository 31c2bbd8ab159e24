// Package fifo is a circular byte buffer used by the loopback and dummy PHY
// implementations to accumulate raw octets between pollData calls.
package fifo

// Fifo is a circular byte buffer. The Alt* methods support peeking ahead of
// readPos without consuming bytes, which the PHY framer uses to look at SD/LE
// before it knows whether a complete telegram is available yet.
type Fifo struct {
	buffer     []byte
	writePos   int
	readPos    int
	altReadPos int
	started    bool
}

func NewFifo(size uint16) *Fifo {
	return &Fifo{buffer: make([]byte, size)}
}

func (f *Fifo) Reset() {
	f.readPos = 0
	f.writePos = 0
	f.started = false
}

func (f *Fifo) GetSpace() int {
	sizeLeft := f.readPos - f.writePos - 1
	if sizeLeft < 0 {
		sizeLeft += len(f.buffer)
	}
	return sizeLeft
}

func (f *Fifo) GetOccupied() int {
	sizeOccupied := f.writePos - f.readPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}

// Write appends buffer to the fifo, stopping short if it fills up.
func (f *Fifo) Write(buffer []byte) int {
	if buffer == nil {
		return 0
	}
	writeCounter := 0
	for _, element := range buffer {
		writePosNext := f.writePos + 1
		if writePosNext == f.readPos || (writePosNext == len(f.buffer) && f.readPos == 0) {
			break
		}
		f.buffer[f.writePos] = element
		writeCounter++
		if writePosNext == len(f.buffer) {
			f.writePos = 0
		} else {
			f.writePos++
		}
	}
	return writeCounter
}

// Read consumes up to len(buffer) bytes from the fifo.
func (f *Fifo) Read(buffer []byte) int {
	if buffer == nil || f.readPos == f.writePos {
		return 0
	}
	readCounter := 0
	for index := range buffer {
		if f.readPos == f.writePos {
			break
		}
		buffer[index] = f.buffer[f.readPos]
		readCounter++
		f.readPos++
		if f.readPos == len(f.buffer) {
			f.readPos = 0
		}
	}
	return readCounter
}

// AltBegin starts a peek at the given offset from readPos without consuming.
func (f *Fifo) AltBegin(offset int) int {
	var i int
	f.altReadPos = f.readPos
	for i = offset; i > 0; i-- {
		if f.altReadPos == f.writePos {
			break
		}
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return offset - i
}

// AltFinish commits the peek, advancing readPos to altReadPos.
func (f *Fifo) AltFinish() {
	f.readPos = f.altReadPos
}

// AltRead peeks bytes starting at altReadPos without consuming them.
func (f *Fifo) AltRead(buffer []byte) int {
	readCounter := 0
	for index := range buffer {
		if f.altReadPos == f.writePos {
			break
		}
		buffer[index] = f.buffer[f.altReadPos]
		readCounter++
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return readCounter
}

func (f *Fifo) AltGetOccupied() int {
	sizeOccupied := f.writePos - f.altReadPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}
