package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"connprobe/internal/api"
	"connprobe/internal/logger"
	"connprobe/internal/probe"
	"connprobe/internal/runner"
)

var (
	listenAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "启动Web管理界面",
		Long:  "启动内置Web管理界面和JSON API，可在页面上逐个触发端点检测并查看失败详情。",
		Run: func(cmd *cobra.Command, args []string) {
			if err := InitSystem(); err != nil {
				fmt.Fprintf(os.Stderr, "系统初始化失败: %v\n", err)
				os.Exit(1)
			}

			cfg := GetConfig()
			if listenAddr != "" {
				cfg.Listen = listenAddr
			}

			server := api.NewServer(cfg, runner.NewRunner(probe.NewRegistry()))
			if err := server.Start(); err != nil {
				logger.Errorf("启动Web服务失败: %v", err)
				os.Exit(1)
			}

			// 等待中断信号
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			logger.Info("服务运行中，按 Ctrl+C 停止...")
			<-sigChan

			logger.Info("收到停止信号，正在关闭...")
			server.Stop()
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "监听地址，默认取环境变量 LISTEN_ADDR (缺省 :8080)")
}
