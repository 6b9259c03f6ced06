package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xkpool/pkg/config/xconf"
	"github.com/omeyang/xkpool/pkg/mq/xkafkapool"
	"github.com/omeyang/xkpool/pkg/observability/xlog"
)

const (
	defaultSection        = "kafka"
	defaultPollTimeout    = time.Second
	defaultCommitInterval = 5 * time.Second
	defaultMaxRestarts    = 5
	defaultConnectFails   = 3

	backoffExponential = "exponential"
	backoffFixed       = "fixed"
	backoffNone        = "none"

	// logLevelKey 配置文件中日志级别的路径，--watch 时热更新。
	logLevelKey = "log" + xkafkapool.ConfigDelim + "level"
)

var restartBackoffs = []string{backoffExponential, backoffFixed, backoffNone}

// usageError 表示参数错误（退出码 2）。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands(env *environment) []*cli.Command {
	return []*cli.Command{
		createConsumeCommand(env),
		createCheckConfigCommand(env),
	}
}

// createConsumeCommand 创建 consume 子命令。
func createConsumeCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "轮询消费所有订阅主题",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "batch",
				Usage: "使用 BatchPoll（受 fetch_messages/fetch_wait_max_time 约束）",
			},
			&cli.DurationFlag{
				Name:  "poll-timeout",
				Usage: "单次 Poll 的等待时间",
				Value: defaultPollTimeout,
			},
			&cli.DurationFlag{
				Name:  "commit-interval",
				Usage: "提交 offset 并输出统计的间隔，<= 0 表示每轮都提交",
				Value: defaultCommitInterval,
			},
			&cli.IntFlag{
				Name:  "max-messages",
				Usage: "至少消费指定条数后退出，0 表示不限制",
			},
			&cli.IntFlag{
				Name:  "max-restarts",
				Usage: "消费循环失败后的最大重启次数",
				Value: defaultMaxRestarts,
			},
			&cli.DurationFlag{
				Name:  "restart-delay",
				Usage: "重启前的等待时间（exponential 下为首次等待）",
				Value: time.Second,
			},
			&cli.StringFlag{
				Name:  "restart-backoff",
				Usage: "重启等待策略 (exponential/fixed/none)",
				Value: backoffExponential,
			},
			&cli.IntFlag{
				Name:  "connect-failures",
				Usage: "连续创建消费者失败达到该次数后熔断并退出，0 表示不熔断",
				Value: defaultConnectFails,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "监视配置文件并热更新 log.level",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)，默认取配置文件 log.level",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（按大小轮转），为空时输出到 stderr",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := consumeOptionsFrom(cmd)
			if err != nil {
				return err
			}
			return cmdConsume(ctx, env, cmd.String("config"), cmd.String("section"), opts)
		},
	}
}

// createCheckConfigCommand 创建 check-config 子命令。
func createCheckConfigCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:  "check-config",
		Usage: "校验配置并打印每个主题合并后的客户端配置",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdCheckConfig(env.stdout, cmd.String("config"), cmd.String("section"))
		},
	}
}

func consumeOptionsFrom(cmd *cli.Command) (consumeOptions, error) {
	opts := consumeOptions{
		batch:          cmd.Bool("batch"),
		pollTimeout:    cmd.Duration("poll-timeout"),
		commitInterval: cmd.Duration("commit-interval"),
		maxMessages:    cmd.Int("max-messages"),
		maxRestarts:    cmd.Int("max-restarts"),
		restartDelay:   cmd.Duration("restart-delay"),
		restartBackoff: strings.ToLower(strings.TrimSpace(cmd.String("restart-backoff"))),
		connectFails:   cmd.Int("connect-failures"),
		watch:          cmd.Bool("watch"),
		logLevel:       cmd.String("log-level"),
		logFormat:      cmd.String("log-format"),
		logFile:        cmd.String("log-file"),
	}
	switch {
	case opts.pollTimeout < 0:
		return opts, &usageError{msg: "--poll-timeout 不能为负"}
	case opts.maxMessages < 0:
		return opts, &usageError{msg: "--max-messages 不能为负"}
	case opts.maxRestarts < 0:
		return opts, &usageError{msg: "--max-restarts 不能为负"}
	case opts.connectFails < 0:
		return opts, &usageError{msg: "--connect-failures 不能为负"}
	case !slices.Contains(restartBackoffs, opts.restartBackoff):
		return opts, &usageError{msg: fmt.Sprintf("--restart-backoff 取值为 %s", strings.Join(restartBackoffs, "/"))}
	}
	return opts, nil
}

// loadConfig 读取配置文件并解析 section 处的池配置。
func loadConfig(path, section string) (xconf.Config, *xkafkapool.Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, &usageError{msg: "缺少 --config"}
	}
	src, err := xconf.New(path, xconf.WithDelim(xkafkapool.ConfigDelim))
	if err != nil {
		return nil, nil, err
	}
	cfg, err := xkafkapool.LoadConfig(src, section)
	if err != nil {
		return nil, nil, err
	}
	return src, cfg, nil
}

// ensureClientID 在未配置 client.id 时生成一个唯一值，便于在 broker 侧区分实例。
func ensureClientID(cfg *xkafkapool.Config) {
	if cfg.ClientID != "" {
		return
	}
	if _, ok := cfg.ConsumerOptions["client.id"]; ok {
		return
	}
	cfg.ClientID = "xkpool-" + uuid.NewString()
}

// buildLogger 按命令行和配置文件构建日志器，命令行优先。
func buildLogger(env *environment, src xconf.Config, opts consumeOptions) (xlog.LoggerWithLevel, func() error, error) {
	level := opts.logLevel
	if level == "" {
		level = src.Client().String(logLevelKey)
	}

	b := xlog.New().SetOutput(env.stderr).SetFormat(opts.logFormat)
	if level != "" {
		b.SetLevelString(level)
	}
	if opts.logFile != "" {
		b.SetRotation(opts.logFile)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, &usageError{msg: err.Error()}
	}
	return logger, cleanup, nil
}

// cmdCheckConfig 打印每个主题合并后的客户端配置，键按字典序排列。
func cmdCheckConfig(w io.Writer, path, section string) error {
	_, cfg, err := loadConfig(path, section)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "group: %s\n", cfg.GroupID)
	fmt.Fprintf(w, "fetch_messages: %d\n", cfg.FetchMessages)
	fmt.Fprintf(w, "fetch_wait_max_time: %s\n", cfg.FetchWaitMaxTime)
	fmt.Fprintf(w, "synchronous_commits: %t\n", cfg.SynchronousCommits)
	for _, sub := range cfg.Subscriptions {
		cm := *cfg.ClientConfig(sub)
		keys := make([]string, 0, len(cm))
		for k := range cm {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		fmt.Fprintf(w, "topic %s:\n", sub.Topic)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%v\n", k, cm[k])
		}
	}
	return nil
}
