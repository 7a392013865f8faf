package ledger

import stderrs "errors"

const (
	emptyString = ""

	// DefaultAsyncCapacity is used by Settings when an async section omits its capacity.
	DefaultAsyncCapacity = 1024
)

const (
	errMsgNilSink         = "Sink is nil."
	errMsgNilLogger       = "Logger is nil."
	errMsgConfigInvalid   = "Logging configuration is invalid."
	errMsgOptionsInvalid  = "Sink options are invalid."
	errMsgSettingsInvalid = "Logging settings are invalid."
	errMsgOpenFile        = "Failed to open log file."
	errMsgRotate          = "Failed to rotate log file."
	errMsgWrite           = "Failed to write log line."
	errMsgSync            = "Failed to sync log file."
	errMsgCompress        = "Failed to compress rotated log file."
	errMsgReadSettings    = "Failed to read logging settings."
)

var (
	// ErrSinkClosed is returned by sinks that have been closed.
	ErrSinkClosed = stderrs.New("ledger: sink closed")
	// ErrLoggerClosed is returned by configuration calls on a closed Logger.
	ErrLoggerClosed = stderrs.New("ledger: logger closed")
)
