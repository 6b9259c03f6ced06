// xkpool 是基于 xkafkapool 的多主题 Kafka 消费命令行工具。
//
// 用法:
//
//	xkpool [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径（yaml/json）
//	    --section  池配置在文件中的路径 (默认: kafka)
//
// 命令:
//
//	consume        轮询消费所有订阅主题，消息逐行写到标准输出
//	check-config   校验配置并打印每个主题合并后的客户端配置
//
// 退出码:
//
//	0: 成功（consume 收到信号后正常退出也视为成功）
//	1: 运行失败
//	2: 参数或配置错误
//
// 示例:
//
//	xkpool -c pool.yaml check-config
//	xkpool -c pool.yaml consume --batch --commit-interval 5s
//	xkpool -c pool.yaml consume --watch --log-format json --log-file /var/log/xkpool.log
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xkpool/pkg/mq/xkafkapool"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// environment 汇总命令运行所需的外部依赖，测试中替换。
type environment struct {
	stdout io.Writer
	stderr io.Writer

	// factory 为 nil 时使用 xkafkapool.ConsumerFactory。
	factory xkafkapool.Factory

	// signals 为 false 时不安装信号处理。
	signals bool
}

func defaultEnvironment() *environment {
	return &environment{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		signals: true,
	}
}

func main() {
	os.Exit(run(context.Background(), defaultEnvironment(), os.Args))
}

// createApp 创建 CLI 应用。
func createApp(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "xkpool",
		Usage:   "多主题 Kafka 消费者池",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
				Sources: cli.EnvVars("XKPOOL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "section",
				Usage: "池配置在文件中的路径",
				Value: defaultSection,
			},
		},
		Commands:  createCommands(env),
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(env.stderr, err)
			}
		},
	}
}

func run(ctx context.Context, env *environment, args []string) int {
	app := createApp(env)

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(env.stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if errors.Is(err, xkafkapool.ErrInvalidConfig) {
			fmt.Fprintf(env.stderr, "配置错误: %v\n", err)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(env.stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// isCLIUsageError 识别 urfave/cli 产生的参数解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
