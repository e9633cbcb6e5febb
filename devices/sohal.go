package devices

import (
	"encoding/json"

	"hippy/client"
)

// LogSettings is the SoHal logging configuration: the file messages are
// written to and the verbosity level, 0 (errors only) through 4 (all
// messages).
type LogSettings struct {
	File  string `json:"file,omitempty"`
	Level *int   `json:"level,omitempty"`
}

// SoHal exposes the high level methods and notifications of the SoHal
// application itself.
type SoHal struct {
	caller Caller
}

// NewSoHal creates the sohal wrapper on the given connection.
func NewSoHal(c Caller) *SoHal {
	return &SoHal{caller: c}
}

// Exit asks the SoHal server to shut down.
func (s *SoHal) Exit() error {
	_, err := s.caller.Call("sohal", "exit")
	return err
}

// Log returns the current logging configuration.
func (s *SoHal) Log() (LogSettings, error) {
	raw, err := s.caller.Call("sohal", "log")
	if err != nil {
		return LogSettings{}, err
	}
	var settings LogSettings
	err = json.Unmarshal(raw, &settings)
	return settings, err
}

// SetLog updates the logging configuration. Fields left empty keep their
// current value.
func (s *SoHal) SetLog(settings LogSettings) (LogSettings, error) {
	raw, err := s.caller.Call("sohal", "log", settings)
	if err != nil {
		return LogSettings{}, err
	}
	var updated LogSettings
	err = json.Unmarshal(raw, &updated)
	return updated, err
}

// Version returns the SoHal version string.
func (s *SoHal) Version() (string, error) {
	raw, err := s.caller.Call("sohal", "version")
	if err != nil {
		return "", err
	}
	var version string
	err = json.Unmarshal(raw, &version)
	return version, err
}

// Subscribe registers cb for sohal notifications.
func (s *SoHal) Subscribe(cb client.NotificationFunc) (int, error) {
	return s.caller.Subscribe("sohal", cb)
}

// Unsubscribe stops sohal notifications.
func (s *SoHal) Unsubscribe() (int, error) {
	return s.caller.Unsubscribe("sohal")
}
