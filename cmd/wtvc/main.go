// wtvc is the push-to-talk voice chat daemon: hold a joystick button, speak,
// and the transcript is typed into the game chat. Optionally reads incoming
// chat messages aloud.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/app"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/audio"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/chat"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/config"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/inject"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/ipc"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/joystick"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/proxy"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/stt"
	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/tts"
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	envFile := cli.String("env", ".env", "path to env file")
	configPath := cli.String("config", config.DefaultPath(), "path to config file")
	logLevel := cli.String("log", "info", "log level: debug, info, warn, error")
	sttBackend := cli.String("stt", "local", "transcription backend: local or cloud")
	proxyAddr := cli.String("proxy", "", "SOCKS5 proxy host:port for the cloud backend")
	socketPath := cli.String("socket", ipc.DefaultSocketPath, "control socket path")
	listDevices := cli.Bool("list-devices", false, "list audio input devices and exit")
	listJoysticks := cli.Bool("list-joysticks", false, "list joysticks and exit")
	cli.Parse()

	level, ok := logLevelMap[*logLevel]
	if !ok {
		level = slog.LevelInfo
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(log)

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("no env file loaded", "path", *envFile)
	}

	if err := run(log, *configPath, *sttBackend, *proxyAddr, *socketPath, *listDevices, *listJoysticks); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configPath, sttBackend, proxyAddr, socketPath string, listDevices, listJoysticks bool) error {
	cfg := config.Load(configPath, log)

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	if listDevices {
		devices, err := audio.ListDevices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("%3d  %s (%d ch, %.0f Hz)\n", d.Index, d.Name, d.Channels, d.SampleRate)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loop := app.NewLoop()

	// Transcription backend.
	loader, err := buildLoader(cfg, sttBackend, proxyAddr, log)
	if err != nil {
		return err
	}
	gateway := stt.NewGateway(loader, stt.Settings{
		ModelSize: cfg.Whisper.Model,
		Device:    cfg.Whisper.Device,
	}, log)

	// Keystroke injection.
	injector := inject.New(log)
	injector.SetDelay(cfg.Injection.DelayMS)
	if err := injector.SetChatKey(cfg.Injection.ChatKey); err != nil {
		log.Warn("invalid chat key in config, keeping enter", "err", err)
	}

	mic := audio.NewMicrophone(cfg.Audio.InputDevice, log)

	timing := app.DefaultTiming()
	if cfg.Whisper.TimeoutSeconds > 0 {
		timing.TranscribeTimeout = time.Duration(cfg.Whisper.TimeoutSeconds) * time.Second
	}
	orch := app.New(loop, micAdapter{mic}, gateway, injector, logSink{log}, app.Options{
		Timing:    timing,
		Translate: cfg.Whisper.Translate,
		Logger:    log,
	})

	// Joystick PTT.
	poller := joystick.NewPoller(orch.PressEdge, orch.ReleaseEdge, log)
	infos := poller.Refresh()
	if listJoysticks {
		for _, d := range infos {
			fmt.Printf("%3d  %s (%d buttons)\n", d.ID, d.Name, d.Buttons)
		}
		return nil
	}
	if cfg.Joystick.Name != "" && cfg.Joystick.Button >= 0 {
		if poller.SelectByName(cfg.Joystick.Name, cfg.Joystick.Button) {
			log.Info("push-to-talk bound", "device", cfg.Joystick.Name, "button", cfg.Joystick.Button)
		} else {
			log.Warn("configured joystick not attached", "name", cfg.Joystick.Name)
		}
	} else {
		log.Info("no push-to-talk binding; use the bind control command")
	}
	go poller.Run()
	defer poller.Stop()

	// Speech output and the chat reader.
	engine := tts.NewEngine(buildVoiceFactory(cfg), audio.NewDucker(40, log), log)
	go engine.Run()
	defer engine.Stop()

	if cfg.Chat.Enabled {
		listener := chat.NewListener(cfg.Chat.URL,
			time.Duration(cfg.Chat.PollIntervalMS)*time.Millisecond,
			func(m chat.Message) {
				if !shouldRead(cfg.Chat, m) {
					return
				}
				engine.Say(fmt.Sprintf("%s: %s", m.Sender, m.Content))
			}, log)
		listener.SetOwnUsername(cfg.Chat.OwnUsername)
		go listener.Run(ctx)
		log.Info("chat reader enabled", "url", cfg.Chat.URL)
	}

	// Control socket.
	server, err := ipc.StartServer(socketPath, controlHandler(orch, poller, engine, cfg, configPath, log), log)
	if err != nil {
		return err
	}
	defer server.Close()

	log.Info("wtvc running", "socket", socketPath, "stt", sttBackend)
	loop.Run(ctx)
	return nil
}

func buildLoader(cfg config.Config, backend, proxyAddr string, log *slog.Logger) (stt.Loader, error) {
	switch backend {
	case "local":
		return stt.NewWhisperLoader(cfg.Whisper.ModelDir, cfg.Whisper.AutoDownload, log), nil
	case "cloud":
		client, err := proxy.NewSocksClient(proxyAddr)
		if err != nil {
			return nil, err
		}
		return stt.NewCloudLoader(os.Getenv("OPENAI_API_KEY"), client, log), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", backend)
	}
}

func buildVoiceFactory(cfg config.Config) tts.Factory {
	if cfg.TTS.Backend == "remote" {
		return tts.NewRemoteFactory(cfg.TTS.URL, cfg.TTS.Voice)
	}
	return tts.NewEspeakFactory(cfg.TTS.Voice, cfg.TTS.Rate)
}

func shouldRead(cfg config.Chat, m chat.Message) bool {
	if m.Enemy {
		return cfg.ReadAll
	}
	switch m.Channel {
	case chat.ChannelTeam, chat.ChannelSquadron:
		return cfg.ReadTeam
	case chat.ChannelAll:
		return cfg.ReadAll
	default:
		return cfg.ReadAll
	}
}

func controlHandler(orch *app.Orchestrator, poller *joystick.Poller, engine *tts.Engine, cfg config.Config, configPath string, log *slog.Logger) ipc.Handler {
	return func(m ipc.ControlMessage) string {
		switch m.Cmd {
		case "press":
			orch.PressEdge()
			return "ok"
		case "release":
			orch.ReleaseEdge()
			return "ok"
		case "say":
			if engine.Say(m.Arg) {
				return "ok"
			}
			return "error: speech queue full"
		case "status":
			state, detail := orch.Snapshot()
			if detail == "" {
				return state.String()
			}
			return fmt.Sprintf("%s: %s", state, detail)
		case "bind":
			poller.CaptureNext(func(devID, button int) {
				infos := poller.Refresh()
				poller.Select(devID, button)
				for _, d := range infos {
					if d.ID == devID {
						cfg.Joystick.Name = d.Name
					}
				}
				cfg.Joystick.Button = button
				if err := cfg.Save(configPath); err != nil {
					log.Warn("failed to save binding", "err", err)
				}
				log.Info("push-to-talk bound", "device", devID, "button", button)
			})
			return "press the desired button"
		default:
			return fmt.Sprintf("error: unknown command %q", m.Cmd)
		}
	}
}

// micAdapter narrows *audio.Microphone to the orchestrator's interface.
type micAdapter struct {
	mic *audio.Microphone
}

func (a micAdapter) Start() (app.CaptureSession, error) {
	return a.mic.Start()
}

// logSink reports orchestrator activity to the log.
type logSink struct {
	log *slog.Logger
}

func (s logSink) StateChanged(state app.State, detail string) {
	if detail == "" {
		s.log.Info("state", "state", state)
		return
	}
	s.log.Info("state", "state", state, "detail", detail)
}

func (s logSink) Transcript(text string) {
	s.log.Info("sent", "text", text)
}
