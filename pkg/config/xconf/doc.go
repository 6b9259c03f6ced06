// Package xconf 提供配置文件加载和解析功能，基于 koanf 实现。
//
// # 设计理念
//
// xconf 定位为最小化配置加载器，负责文件/字节数据的加载、反序列化和热重载。
// 不负责配置治理（必选字段校验、默认值注入），这些由使用方的 Config 类型
// 自行完成，例如 xkafkapool.LoadConfig 在 Unmarshal 之后注入默认值并校验。
//
// # 支持的格式
//
//   - YAML（默认，推荐）：.yaml, .yml
//   - JSON：.json
//
// # 键分隔符
//
// koanf 使用分隔符把嵌套结构展开为扁平键，默认为 "."。
// Kafka 客户端属性本身带点号（如 "session.timeout.ms"），
// 以 "." 作为分隔符时，按路径访问（String、Exists 等）会把属性名拆成多段，
// 无法定位到单个属性。承载 Kafka 属性的配置应使用 WithDelim 指定其他分隔符（如 "/"）。
//
// # 并发安全
//
// Reload 与 Unmarshal/Client 之间通过读写锁保护，Reload 在解析成功后
// 才替换内部 koanf 实例，解析失败时保留旧配置。
//
// # 配置监视
//
// Watcher 基于 fsnotify 监视配置文件所在目录，内置防抖，
// 兼容 vim/emacs 的原子写入（写临时文件后 rename）。
// Watcher.Run(ctx) 阻塞直到 ctx 取消，可直接作为 xrun 的服务运行。
// 从字节数据创建的 Config 不支持监视。
package xconf
