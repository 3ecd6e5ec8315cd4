package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamza-v/dash-chat/internal/chatclient"
	"github.com/hamza-v/dash-chat/internal/config"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to config file")
	token := flag.String("token", os.Getenv("DASH_CHAT_TOKEN"), "bearer token from the dashboard login")
	userID := flag.String("user", os.Getenv("DASH_CHAT_USER"), "authenticated user id")
	flag.Parse()

	if *token == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -token <bearer token> -user <user id> [-config path]")
		os.Exit(2)
	}

	logFile, err := os.OpenFile("chat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.DebugLevel,
	)
	logger := zap.New(core)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	toasts := make(chan string, 8)
	session, err := chatclient.NewSession(
		chatclient.Config{WSURL: cfg.Client.WSURL, APIURL: cfg.Client.APIURL},
		chatclient.Identity{UserID: *userID, Token: *token},
		&chatclient.WebsocketDialer{},
		chatclient.NotifierFunc(func(sender, preview string) {
			select {
			case toasts <- sender + ": " + preview:
			default:
			}
		}),
		logger,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating session:", err)
		os.Exit(1)
	}
	session.Start()
	defer session.Close()

	p := tea.NewProgram(initialModel(session, toasts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "running ui:", err)
		os.Exit(1)
	}
}
