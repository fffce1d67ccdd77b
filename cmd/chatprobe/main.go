// chatprobe holds one match channel open and logs every event it receives.
// It is an operator tool for checking a deployment end to end.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gadsdencode/vybechex-sub000/internal/chatclient"
	"github.com/gadsdencode/vybechex-sub000/internal/infra/logger"
)

func main() {
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	log, err := logger.New(level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	url := os.Getenv("CHAT_URL")
	token := os.Getenv("CHAT_TOKEN")
	if url == "" || token == "" {
		log.Fatal("CHAT_URL and CHAT_TOKEN are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	dialer := chatclient.New(chatclient.Config{URL: url, Header: header}, log.Named("chatclient"))

	err = dialer.Run(ctx, func(frame []byte) {
		var event struct {
			Type    string `json:"type"`
			MatchID int64  `json:"match_id"`
		}
		if err := json.Unmarshal(frame, &event); err != nil {
			log.Warn("undecodable frame", zap.ByteString("frame", frame))
			return
		}
		log.Info("channel event",
			zap.String("type", event.Type),
			zap.Int64("match_id", event.MatchID),
			zap.ByteString("frame", frame),
		)
	})
	switch {
	case errors.Is(err, chatclient.ErrHandshakeRejected):
		log.Fatal("channel refused this actor", zap.Error(err))
	case err != nil:
		log.Fatal("channel probe stopped", zap.Error(err))
	}
}
