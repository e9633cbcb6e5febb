// Package console implements the interactive shell of the hippy command
// line tool. Commands map onto the device wrappers, with completion for
// command names, device names and enum arguments.
package console

import (
	"fmt"
	"strings"

	"hippy/client"
	"hippy/devices"

	"github.com/c-bata/go-prompt"
)

// session holds the shared connection and the device wrappers the
// commands operate on.
type session struct {
	client *client.Client

	system       *devices.System
	sohal        *devices.SoHal
	desklamp     *devices.DeskLamp
	projector    *devices.Projector
	touchmat     *devices.TouchMat
	sbuttons     *devices.SButtons
	capturestage *devices.CaptureStage
	hirescamera  *devices.HiResCamera
	depthcamera  *devices.DepthCamera
	uvccamera    *devices.UVCCamera

	quit bool
}

func newSession(c *client.Client) *session {
	return &session{
		client:       c,
		system:       devices.NewSystem(c),
		sohal:        devices.NewSoHal(c),
		desklamp:     devices.NewDeskLamp(c),
		projector:    devices.NewProjector(c),
		touchmat:     devices.NewTouchMat(c),
		sbuttons:     devices.NewSButtons(c),
		capturestage: devices.NewCaptureStage(c),
		hirescamera:  devices.NewHiResCamera(c),
		depthcamera:  devices.NewDepthCamera(c),
		uvccamera:    devices.NewUVCCamera(c),
	}
}

// device returns the base wrapper for a device name typed at the
// prompt.
func (s *session) device(name string) (interface {
	Open() (int, error)
	Close() (int, error)
	Info() (devices.DeviceInfo, error)
	IsDeviceConnected() (bool, error)
	Subscribe(cb client.NotificationFunc) (int, error)
	Unsubscribe() (int, error)
}, error) {
	switch name {
	case "desklamp":
		return s.desklamp, nil
	case "projector":
		return s.projector, nil
	case "touchmat":
		return s.touchmat, nil
	case "sbuttons":
		return s.sbuttons, nil
	case "capturestage":
		return s.capturestage, nil
	case "hirescamera":
		return s.hirescamera, nil
	case "depthcamera":
		return s.depthcamera, nil
	case "uvccamera":
		return s.uvccamera, nil
	}
	return nil, fmt.Errorf("unknown device: %s", name)
}

// camera returns the camera wrapper for a camera name typed at the
// prompt.
func (s *session) camera(name string) (*devices.Camera, error) {
	switch name {
	case "hirescamera":
		return &s.hirescamera.Camera, nil
	case "depthcamera":
		return &s.depthcamera.Camera, nil
	case "uvccamera":
		return &s.uvccamera.Camera, nil
	}
	return nil, fmt.Errorf("unknown camera: %s", name)
}

// Run starts the interactive shell and blocks until the user quits.
func Run(c *client.Client) {
	s := newSession(c)
	fmt.Println("help for usage, quit to exit")

	executor := func(line string) {
		if err := s.execute(line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	p := prompt.New(
		executor,
		s.complete,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("hippy"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return s.quit
		}),
	)
	p.Run()
	_ = c.Close()
}

// execute parses one input line and runs the matching command.
func (s *session) execute(line string) error {
	words := splitWords(line)
	if len(words) == 0 {
		return nil
	}
	def := lookupCommand(words[0])
	if def == nil {
		return fmt.Errorf("unknown command: %s (try help)", words[0])
	}
	return def.Exec(s, words[1:])
}

// complete produces suggestions for the word under the cursor.
func (s *session) complete(d prompt.Document) []prompt.Suggest {
	return s.completeText(d.TextBeforeCursor(), d.GetWordBeforeCursor())
}

func (s *session) completeText(before, word string) []prompt.Suggest {
	words := splitWords(before)
	atNewWord := strings.HasSuffix(before, " ")

	// First word: command names.
	if len(words) == 0 || (len(words) == 1 && !atNewWord) {
		suggests := make([]prompt.Suggest, 0, len(commandTable))
		for _, def := range commandTable {
			suggests = append(suggests, prompt.Suggest{Text: def.Name, Description: def.Summary})
		}
		return prompt.FilterHasPrefix(suggests, word, true)
	}

	def := lookupCommand(words[0])
	if def == nil || def.Candidates == nil {
		return nil
	}
	return prompt.FilterHasPrefix(def.Candidates(s, words), word, true)
}

// splitWords splits an input line into words, honoring double and
// single quotes.
func splitWords(line string) []string {
	words := make([]string, 0)
	var word strings.Builder
	inQuote := false
	hasWord := false

	flush := func() {
		if hasWord {
			words = append(words, word.String())
			word.Reset()
			hasWord = false
		}
	}

	for _, r := range line {
		switch r {
		case ' ', '\t':
			if inQuote {
				word.WriteRune(r)
				hasWord = true
			} else {
				flush()
			}
		case '"', '\'':
			inQuote = !inQuote
			hasWord = true
		default:
			word.WriteRune(r)
			hasWord = true
		}
	}
	flush()
	return words
}
