package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"friday/internal/assistant"
	"friday/internal/audio"
	"friday/internal/browser"
	"friday/internal/bus"
	"friday/internal/capture"
	"friday/internal/capture/mic"
	"friday/internal/duck"
	"friday/internal/ipc"
	"friday/internal/notify"
	"friday/internal/proxy"
	"friday/internal/shell"
	"friday/internal/tts"
	"friday/internal/voice"
	"friday/internal/wiki"
	"friday/pkg/stt"
	"friday/pkg/stt/cloud"
	"friday/pkg/stt/whisper"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socket := cli.StringP("socket", "s", "", "Control socket path (env FRIDAY_SOCKET)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS5 proxy for lookups, empty for direct")
	sttBackend := cli.String("stt", "whisper", "Speech-to-text backend: whisper or openai")
	model := cli.StringP("model", "m", "", "Whisper model path (env WHISPER_MODEL), or transcription model for --stt openai")
	input := cli.StringP("input", "i", "", "Replay this audio file instead of the microphone")
	duckOthers := cli.Bool("duck", false, "Lower other applications while listening")
	cuePath := cli.String("cue", "beep.mp3", "Sound played when listening starts, empty to disable")
	catalogPath := cli.StringP("catalog", "c", "", "YAML catalog overriding sites, facts and people")
	busURL := cli.StringP("bus", "b", "", "Websocket hub for remote views (env FRIDAY_BUS_URL)")
	lookupTimeout := cli.Duration("lookup-timeout", 10*time.Second, "Person lookup timeout")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}
	*socket = orEnv(*socket, "FRIDAY_SOCKET", ipc.DefaultSocketPath)
	if *sttBackend == sttWhisper {
		*model = orEnv(*model, "WHISPER_MODEL", "third_party/whisper.cpp/models/ggml-base.en.bin")
	}
	*busURL = orEnv(*busURL, "FRIDAY_BUS_URL", "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := assistant.DefaultCatalog()
	if *catalogPath != "" {
		var err error
		if catalog, err = assistant.LoadCatalog(*catalogPath); err != nil {
			log.Error("Failed to load catalog", "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded catalog", "path", *catalogPath)
	}

	httpClient, err := proxy.NewHTTPClient(*proxyAddr, 2**lookupTimeout)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	lookup := wiki.NewClient(httpClient, wiki.Config{Timeout: *lookupTimeout})
	interp := assistant.NewInterpreter(catalog, lookup)

	tr, closeTr := setupTranscriber(*sttBackend, *model, httpClient)
	defer closeTr()

	var rec capture.Recognizer
	if tr != nil {
		var closeRec func()
		rec, closeRec = setupRecognizer(tr, *input, *duckOthers)
		defer closeRec()
	}

	engine, err := tts.NewEngine()
	var speaker *voice.Speaker
	if err != nil {
		log.Error("Failed to init speech synthesis", "err", err)
		speaker = voice.NewSpeaker(nil, nil)
	} else {
		defer engine.Close()
		speaker = voice.NewSpeaker(engine, voice.NewCatalog(engine))
		go rescanOnHangup(ctx, engine)
	}

	var cue shell.Cue
	if *cuePath != "" {
		cue = notify.NewCue(*cuePath)
	}

	sh := shell.New(shell.Config{
		Capture:     capture.New(rec, capture.Config{}),
		Interpreter: interp,
		Speaker:     speaker,
		Navigator:   browser.NewNavigator(),
		Cue:         cue,
		Alert:       notify.Alert,
		Views:       []shell.View{shell.NewConsole(os.Stdout)},
	})

	if *busURL != "" {
		b, err := bus.Dial(ctx, *busURL, 2*time.Second)
		if err != nil {
			log.Error("Failed to connect to bus", "url", *busURL, "err", err)
			os.Exit(1)
		}
		sh.AddView(b)
		go func() {
			err := b.Run(ctx, func(text string) {
				if _, err := sh.Ask(ctx, text); err != nil {
					log.Warn("Failed to handle bus utterance", "err", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Bus stopped", "err", err)
			}
		}()
	}

	srv, err := ipc.StartServer(*socket, func(msg ipc.ControlMessage) ipc.Reply {
		return handleControl(ctx, sh, msg)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "socket", *socket)

	<-ctx.Done()

	log.Info("Shutting down")
	sh.Wait()
}

func handleControl(ctx context.Context, sh *shell.Shell, msg ipc.ControlMessage) ipc.Reply {
	var err error

	switch msg.Cmd {
	case ipc.CmdListen:
		err = sh.Listen(ctx)
	case ipc.CmdAsk:
		_, err = sh.Ask(ctx, msg.Text)
	case ipc.CmdState:
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{Error: "unknown command " + msg.Cmd}
	}

	st := sh.State()
	if err != nil {
		return ipc.Reply{Error: err.Error(), State: &st}
	}
	return ipc.Reply{State: &st}
}

const (
	sttWhisper = "whisper"
	sttOpenAI  = "openai"
)

// setupTranscriber returns a nil transcriber when the backend cannot be
// loaded, the shell then reports recognition as unsupported.
func setupTranscriber(backend, model string, httpClient *http.Client) (mic.Transcriber, func()) {
	switch backend {
	case sttWhisper:
		tr, err := whisper.NewTranscriber(model)
		if err != nil {
			log.Error("Failed to init whisper", "model", model, "err", err)
			return nil, func() {}
		}
		log.Debug("Loaded whisper", "model", model)
		return tr, func() { tr.Close() }

	case sttOpenAI:
		tr, err := cloud.NewTranscriber(httpClient, cloud.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   model,
			Retries: 2,
		})
		if err != nil {
			log.Error("Failed to init openai transcription", "err", err)
			return nil, func() {}
		}
		log.Debug("Using openai transcription", "model", cmp.Or(model, cloud.DefaultModel))
		return tr, func() {}

	default:
		log.Error("Unknown stt backend", "stt", backend)
		return nil, func() {}
	}
}

func setupRecognizer(tr mic.Transcriber, input string, duckOthers bool) (capture.Recognizer, func()) {
	var source mic.Source
	closeSource := func() {}
	if input != "" {
		source = mic.File{Path: input}
		log.Info("Replaying audio file for every session", "path", input)
	} else {
		r := audio.NewRecorder(audio.DefaultRecorderConfig())
		if err := r.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			return nil, closeSource
		}
		closeSource = r.Close
		source = r
	}

	var d mic.Ducker
	if duckOthers {
		d = duck.New(nil, duck.Config{
			SelfApps: []string{"friday", "espeak-ng"},
			Floor:    10,
			Factor:   0.3,
			Fade:     150 * time.Millisecond,
		})
	}

	return mic.NewRecognizer(source, tr, d, stt.Options{}), closeSource
}

func rescanOnHangup(ctx context.Context, engine *tts.Engine) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			log.Info("Rescanning voices")
			engine.Rescan()
		}
	}
}

func orEnv(v, key, def string) string {
	if v != "" {
		return v
	}
	if e := os.Getenv(key); e != "" {
		return e
	}
	return def
}
