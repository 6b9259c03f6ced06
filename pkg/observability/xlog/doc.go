// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转）
//   - 动态级别调整（运行时热更新）
//   - 强制 context 传递，方法签名只接受 slog.Attr
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，Build 返回该错误）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xkpool/consumer.log").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 轮转基于 lumberjack，cleanup 负责关闭日志文件。
//
// # 丢弃日志
//
// [Discard] 返回一个不输出任何内容的 Logger，作为组件的默认值和测试替身。
package xlog
