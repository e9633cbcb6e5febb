package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"hippy/devices"
	"hippy/protocol"

	"github.com/c-bata/go-prompt"
	"golang.org/x/exp/slices"
)

// CommandDefinition describes one console command: name, usage text
// and the handler that runs it.
type CommandDefinition struct {
	Name       string
	Summary    string
	Syntax     string
	Exec       func(s *session, args []string) error
	Candidates func(s *session, words []string) []prompt.Suggest
}

var deviceNames = []string{
	"capturestage", "depthcamera", "desklamp", "hirescamera",
	"projector", "sbuttons", "touchmat", "uvccamera",
}

var cameraNames = []string{"depthcamera", "hirescamera", "uvccamera"}

var streamNames = []string{"color", "depth", "ir", "points"}

func suggestWords(words []string) []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(words))
	for _, w := range words {
		suggests = append(suggests, prompt.Suggest{Text: w})
	}
	return suggests
}

func deviceCandidates(s *session, words []string) []prompt.Suggest {
	if len(words) > 2 {
		return nil
	}
	return suggestWords(deviceNames)
}

func cameraCandidates(s *session, words []string) []prompt.Suggest {
	if len(words) == 1 || (len(words) == 2 && !slices.Contains(cameraNames, words[1])) {
		return suggestWords(cameraNames)
	}
	return suggestWords(streamNames)
}

var commandTable []CommandDefinition

func init() {
	commandTable = []CommandDefinition{
		{
			Name:    "help",
			Summary: "show command list",
			Syntax:  "help [command]",
			Exec:    execHelp,
			Candidates: func(s *session, words []string) []prompt.Suggest {
				names := make([]string, 0, len(commandTable))
				for _, def := range commandTable {
					names = append(names, def.Name)
				}
				return suggestWords(names)
			},
		},
		{
			Name:    "quit",
			Summary: "close the connection and exit",
			Syntax:  "quit",
			Exec: func(s *session, args []string) error {
				s.quit = true
				return nil
			},
		},
		{
			Name:    "reconnect",
			Summary: "drop the connection and connect again",
			Syntax:  "reconnect",
			Exec: func(s *session, args []string) error {
				if err := s.client.Reconnect(); err != nil {
					return err
				}
				fmt.Printf("connected on port %d\n", s.client.Port())
				return nil
			},
		},
		{
			Name:    "echo",
			Summary: "round-trip a value through SoHal",
			Syntax:  "echo <text>",
			Exec: func(s *session, args []string) error {
				value, err := s.system.Echo(strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			},
		},
		{
			Name:    "version",
			Summary: "print the SoHal version",
			Syntax:  "version",
			Exec: func(s *session, args []string) error {
				version, err := s.sohal.Version()
				if err != nil {
					return err
				}
				fmt.Println(version)
				return nil
			},
		},
		{
			Name:    "devices",
			Summary: "list connected devices",
			Syntax:  "devices",
			Exec: func(s *session, args []string) error {
				infos, err := s.system.Devices()
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Printf("%s@%d  fw=%s serial=%s\n",
						info.Name, info.Index, info.FWVersion, info.Serial)
				}
				return nil
			},
		},
		{
			Name:    "supported",
			Summary: "list device names SoHal supports",
			Syntax:  "supported",
			Exec: func(s *session, args []string) error {
				names, err := s.system.SupportedDevices()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			},
		},
		{
			Name:    "temperatures",
			Summary: "print temperature sensor readings",
			Syntax:  "temperatures [device ...]",
			Exec: func(s *session, args []string) error {
				infos, err := s.system.Temperatures(args...)
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Printf("%s/%s  %.1f (max %.1f safe %.1f)\n",
						info.Device, info.SensorName, info.Current, info.Max, info.Safe)
				}
				return nil
			},
			Candidates: func(s *session, words []string) []prompt.Suggest {
				return suggestWords(deviceNames)
			},
		},
		{
			Name:       "open",
			Summary:    "open a device",
			Syntax:     "open <device>",
			Exec:       makeDeviceExec(func(d openCloser) (any, error) { return d.Open() }),
			Candidates: deviceCandidates,
		},
		{
			Name:       "close",
			Summary:    "close a device",
			Syntax:     "close <device>",
			Exec:       makeDeviceExec(func(d openCloser) (any, error) { return d.Close() }),
			Candidates: deviceCandidates,
		},
		{
			Name:       "info",
			Summary:    "print device info",
			Syntax:     "info <device>",
			Exec:       makeDeviceExec(func(d openCloser) (any, error) { return d.Info() }),
			Candidates: deviceCandidates,
		},
		{
			Name:       "connected",
			Summary:    "report whether the device hardware is present",
			Syntax:     "connected <device>",
			Exec:       makeDeviceExec(func(d openCloser) (any, error) { return d.IsDeviceConnected() }),
			Candidates: deviceCandidates,
		},
		{
			Name:    "subscribe",
			Summary: "print a device's notifications as they arrive",
			Syntax:  "subscribe <device>",
			Exec: func(s *session, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: subscribe <device>")
				}
				d, err := s.device(args[0])
				if err != nil {
					return err
				}
				_, err = d.Subscribe(func(method string, params any) {
					fmt.Printf("\n[%s] %v\n", method, params)
				})
				return err
			},
			Candidates: deviceCandidates,
		},
		{
			Name:    "unsubscribe",
			Summary: "stop a device's notifications",
			Syntax:  "unsubscribe <device>",
			Exec: func(s *session, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: unsubscribe <device>")
				}
				d, err := s.device(args[0])
				if err != nil {
					return err
				}
				_, err = d.Unsubscribe()
				return err
			},
			Candidates: deviceCandidates,
		},
		{
			Name:    "lamp",
			Summary: "control the desk lamp",
			Syntax:  "lamp high|low|off|state",
			Exec: func(s *session, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: lamp high|low|off|state")
				}
				switch args[0] {
				case "high":
					return s.desklamp.High()
				case "low":
					return s.desklamp.Low()
				case "off":
					return s.desklamp.Off()
				case "state":
					state, err := s.desklamp.State()
					if err != nil {
						return err
					}
					fmt.Println(state)
					return nil
				}
				return fmt.Errorf("unknown lamp action: %s", args[0])
			},
			Candidates: func(s *session, words []string) []prompt.Suggest {
				return suggestWords([]string{"high", "low", "off", "state"})
			},
		},
		{
			Name:    "projector",
			Summary: "control the projector",
			Syntax:  "projector on|off|state",
			Exec: func(s *session, args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: projector on|off|state")
				}
				switch args[0] {
				case "on":
					return s.projector.On()
				case "off":
					return s.projector.Off()
				case "state":
					state, err := s.projector.State()
					if err != nil {
						return err
					}
					fmt.Println(state)
					return nil
				}
				return fmt.Errorf("unknown projector action: %s", args[0])
			},
			Candidates: func(s *session, words []string) []prompt.Suggest {
				return suggestWords([]string{"on", "off", "state"})
			},
		},
		{
			Name:    "grab",
			Summary: "grab one frame set from a camera",
			Syntax:  "grab <camera> <stream> [stream ...]",
			Exec: func(s *session, args []string) error {
				if len(args) < 2 {
					return fmt.Errorf("usage: grab <camera> <stream> [stream ...]")
				}
				cam, err := s.camera(args[0])
				if err != nil {
					return err
				}
				streams := make([]protocol.ImageStream, 0, len(args)-1)
				for _, name := range args[1:] {
					stream, ok := protocol.ImageStreamFromName(name)
					if !ok {
						return fmt.Errorf("unknown stream: %s", name)
					}
					streams = append(streams, stream)
				}
				frames, err := cam.GrabFrame(0, streams...)
				if err != nil {
					return err
				}
				for _, frame := range frames {
					fmt.Printf("%s  %dx%d %s  index=%d  %d bytes\n",
						frame.Stream, frame.Width, frame.Height, frame.Format,
						frame.Index, len(frame.Data))
				}
				return nil
			},
			Candidates: cameraCandidates,
		},
	}
}

// openCloser is the per-device surface the generic device commands use.
type openCloser interface {
	Open() (int, error)
	Close() (int, error)
	Info() (devices.DeviceInfo, error)
	IsDeviceConnected() (bool, error)
}

func makeDeviceExec(run func(d openCloser) (any, error)) func(s *session, args []string) error {
	return func(s *session, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("one device name expected")
		}
		d, err := s.device(args[0])
		if err != nil {
			return err
		}
		result, err := run(d)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	}
}

func printResult(result any) {
	switch v := result.(type) {
	case int, bool, string:
		fmt.Println(v)
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Println(v)
			return
		}
		fmt.Println(string(encoded))
	}
}

func execHelp(s *session, args []string) error {
	if len(args) == 1 {
		def := lookupCommand(args[0])
		if def == nil {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Printf("%s\n  %s\n", def.Syntax, def.Summary)
		return nil
	}
	for _, def := range commandTable {
		fmt.Printf("%-14s %s\n", def.Name, def.Summary)
	}
	return nil
}

func lookupCommand(name string) *CommandDefinition {
	idx := slices.IndexFunc(commandTable, func(def CommandDefinition) bool {
		return def.Name == name
	})
	if idx < 0 {
		return nil
	}
	return &commandTable[idx]
}
