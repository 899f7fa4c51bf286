package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jwalton/go-supportscolor"
	"github.com/spf13/cobra"

	"connprobe/internal/config"
	"connprobe/internal/logger"
	"connprobe/internal/probe"
	"connprobe/internal/runner"
	"connprobe/internal/webhook"
)

var (
	green = "\033[32m"
	red   = "\033[31m"
	reset = "\033[0m"

	checkVerbose bool

	checkCmd = &cobra.Command{
		Use:   "check [name...]",
		Short: "对配置的端点执行一次连通性检测",
		Long: `加载端点清单，对全部端点（或指定名称的端点）并发执行一次连通性检测，
逐行打印结果。任一端点失败时退出码非零。`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
				os.Exit(1)
			}

			// 默认只放出警告以上的内部日志，避免与检测报告重复
			if checkVerbose {
				logger.InitConsoleOnly("debug")
			} else {
				logger.InitConsoleOnly("warn")
			}

			if len(cfg.Endpoints) == 0 {
				fmt.Println("未配置任何端点，请检查端点清单")
				return
			}

			endpoints := filterEndpoints(cfg.Endpoints, args)
			if len(endpoints) == 0 {
				fmt.Fprintln(os.Stderr, "没有匹配的端点")
				os.Exit(1)
			}

			r := runner.NewRunner(probe.NewRegistry())
			report := r.RunAll(context.Background(), endpoints)

			fmt.Println()
			for _, entry := range report.Entries {
				printEntry(entry)
			}

			failed := report.Failed()
			elapsed := report.Duration.Round(time.Millisecond)
			if failed > 0 {
				fmt.Printf("\n%s%d/%d 个端点检测失败%s (耗时 %s)\n", red, failed, len(report.Entries), reset, elapsed)
			} else {
				fmt.Printf("\n%s全部 %d 个端点检测通过%s (耗时 %s)\n", green, len(report.Entries), reset, elapsed)
			}

			if err := webhook.NewClient(cfg.Webhook).SendReport(context.Background(), report); err != nil {
				logger.Errorf("发送检测报告失败: %v", err)
			}

			if failed > 0 {
				os.Exit(1)
			}
		},
	}
)

// filterEndpoints 按名称筛选端点，names为空时返回全部
func filterEndpoints(endpoints []probe.Endpoint, names []string) []probe.Endpoint {
	if len(names) == 0 {
		return endpoints
	}

	matched := make(map[string]bool, len(names))
	for _, name := range names {
		matched[name] = false
	}

	var filtered []probe.Endpoint
	for _, endpoint := range endpoints {
		if _, ok := matched[endpoint.Name]; ok {
			matched[endpoint.Name] = true
			filtered = append(filtered, endpoint)
		}
	}

	for _, name := range names {
		if !matched[name] {
			fmt.Fprintf(os.Stderr, "未找到端点: %s\n", name)
		}
	}
	return filtered
}

// printEntry 打印单个端点的检测结果，失败详情缩进在名称下方
func printEntry(entry runner.Entry) {
	if entry.Result.Success {
		fmt.Printf("%s✓%s %s\n", green, reset, entry.Endpoint.Name)
		return
	}

	fmt.Printf("%s✗%s %s\n", red, reset, entry.Endpoint.Name)
	for _, line := range strings.Split(entry.Result.ErrorMessage, "\n") {
		fmt.Printf("    %s\n", line)
	}
}

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, red, reset = "", "", ""
	}

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "输出检测过程的详细日志")
}
