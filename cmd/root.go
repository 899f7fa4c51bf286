package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "connprobe",
		Short: "connprobe 端点连通性检测工具",
		Long: `connprobe 按照声明式端点清单对数据库、HTTP服务和主机执行连通性检测，
失败时输出完整的错误链路，方便在新环境里快速定位不通的依赖。`,
		Version: "1.0.0",
	}
)

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// 全局flags - 端点清单支持本地文件路径、HTTP(S) URL或S3对象
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "endpoints.json", "端点定义文件路径 (支持 http(s):// 与 s3://，.yaml/.yml 按YAML解析)")
}
