package smpp

import (
	"time"

	"github.com/Zereker/smpp/pdu"
)

// ErrorAction defines the action Run takes when a read error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and keeps reading.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	logger Logger

	onPDU func(p pdu.PDU) error
	// onError is called by Run when reading fails.
	// Returns Disconnect to close the connection, Continue to suppress the error.
	onError func(error) ErrorAction

	connectTimeout time.Duration // bound on dialing; zero means no bound
	bufferSize     int           // size of the Run send queue
	readSize       int           // size of a single socket read
	maxPDULength   uint32        // largest command_length accepted from the peer
}

// Option is a function that configures connection options.
type Option func(*options)

// ConnectTimeoutOption bounds how long Open waits for the connection to be established.
func ConnectTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = timeout
	}
}

// BufferSizeOption sets the size of the queue drained by Run's write loop.
// A larger queue allows more PDUs to be enqueued with Send before it reports ErrBufferFull.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// ReadSizeOption sets how many bytes a single socket read may return.
func ReadSizeOption(size int) Option {
	return func(o *options) {
		o.readSize = size
	}
}

// MaxPDULengthOption sets the largest command_length accepted from the peer.
// Larger PDUs fail the read with ErrPDUTooLarge.
func MaxPDULengthOption(length uint32) Option {
	return func(o *options) {
		o.maxPDULength = length
	}
}

// OnErrorOption sets the callback Run invokes when a read fails with a
// recoverable error such as a malformed frame.
// Return Disconnect to close the connection, or Continue to keep reading.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnPDUOption sets the callback Run invokes for each received PDU.
// It is required by Run and ignored by Read.
func OnPDUOption(cb func(pdu.PDU) error) Option {
	return func(o *options) {
		o.onPDU = cb
	}
}

// LoggerOption sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Default configuration values.
const (
	defaultBufferSize = 1
	defaultReadSize   = 4096
)

// checkOptions sets default values for connection options.
func checkOptions(opts *options) {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.readSize <= 0 {
		opts.readSize = defaultReadSize
	}

	if opts.maxPDULength == 0 {
		opts.maxPDULength = pdu.DefaultMaxLength
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}
