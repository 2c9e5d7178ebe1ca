package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/integrations/chatapi"
	"portfolio-chat/internal/integrations/paramstore"
	"portfolio-chat/internal/repository"
	"portfolio-chat/internal/usecase"
)

// app holds the clients shared by every command. It is built once per
// invocation after flags have been applied to the configuration.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   usecase.StateReadWriter
	awsCfg  *aws.Config
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	a := &app{cfg: cfg}

	log, closeLog, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	a.log = log
	if closeLog != nil {
		a.closers = append(a.closers, closeLog)
	}

	store, err := a.newStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.store = store
	return a, nil
}

// newLogger writes JSON to the configured log file, or text to fallback.
// A nil fallback discards everything.
func newLogger(cfg config.LogConfig, fallback io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.File, err)
		}
		return slog.New(slog.NewJSONHandler(f, opts)), f.Close, nil
	}
	if fallback == nil {
		fallback = io.Discard
	}
	return slog.New(slog.NewTextHandler(fallback, opts)), nil, nil
}

func (a *app) newStore(ctx context.Context) (usecase.StateReadWriter, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendFile:
		return repository.NewFileStore(sc.Path)
	case config.BackendSQLite:
		s, err := repository.NewSQLiteStore(ctx, sc.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.BackendDynamoDB:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), sc.Table, sc.Namespace)
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		return repository.NewRedisStore(rdb, sc.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", sc.Backend)
	}
}

// awsConfig loads the shared AWS configuration on first use.
func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// endpoints returns the chat endpoint candidates, preferring the SSM
// document when a parameter prefix is configured.
func (a *app) endpoints(ctx context.Context) ([]string, error) {
	if a.cfg.ParamPrefix == "" {
		return a.cfg.Chat.Endpoints(), nil
	}
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	eps, err := paramstore.LoadEndpoints(ctx, params, a.cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("load chat endpoints: %w", err)
	}
	a.log.Debug("chat endpoints loaded from parameter store", "prefix", a.cfg.ParamPrefix, "primary", eps.Primary)
	return chatapi.Candidates(eps.Primary, eps.Fallbacks...), nil
}

func (a *app) replier(ctx context.Context) (usecase.Replier, error) {
	if a.cfg.Chat.Offline {
		return usecase.NewKeywordReplier(usecase.WithThinkDelay(a.cfg.Chat.ThinkDelay)), nil
	}
	endpoints, err := a.endpoints(ctx)
	if err != nil {
		return nil, err
	}
	return chatapi.NewClient(endpoints,
		chatapi.WithTimeout(a.cfg.Chat.RequestTimeout),
		chatapi.WithLogger(a.log),
	)
}

func (a *app) widget(ctx context.Context, v usecase.View) (*usecase.ChatWidget, error) {
	r, err := a.replier(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.NewChatWidget(v, r, a.store,
		usecase.WithLogger(a.log),
		usecase.WithWelcomeMessage(a.cfg.Chat.Welcome),
		usecase.WithHistoryLimit(a.cfg.Chat.HistoryLimit),
		usecase.WithFocusDelay(a.cfg.Chat.FocusDelay),
	)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
