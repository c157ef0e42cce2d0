package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/medvoice/backend/internal/config"
	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	"github.com/zhouzirui/medvoice/backend/internal/service/imaging"
	"github.com/zhouzirui/medvoice/backend/internal/service/report"
)

var timeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "consulttester",
	Short: "手动调用报告生成与图片分析模型",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			color.Yellow("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
		}
	},
	SilenceUsage: true,
}

var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "上传本地图片并打印结构化分析结果",
	Args:  cobra.ExactArgs(1),
	RunE:  runImage,
}

var (
	doctorID int
	notes    string
)

var reportCmd = &cobra.Command{
	Use:   "report <transcript.json>",
	Short: "根据通话记录生成问诊报告",
	Long: `transcript.json 是按顺序排列的发言数组，例如:
[{"role":"assistant","text":"What brings you in?"},{"role":"user","text":"I have a headache"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "请求超时时间")
	reportCmd.Flags().IntVar(&doctorID, "doctor", 1, "内置医生 ID")
	reportCmd.Flags().StringVar(&notes, "notes", "", "用户在开始问诊时填写的备注")

	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("失败: %v", err)
		os.Exit(1)
	}
}

func runImage(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadModels()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}
	if !cfg.Vision.Enabled() {
		return errors.New("图片分析未启用，请先配置 OPENROUTER_API_KEY")
	}

	dataURL, err := readDataURL(args[0])
	if err != nil {
		return err
	}

	svc := imaging.NewService(imaging.NewOpenAIClient(cfg.Vision.APIKey, cfg.Vision.BaseURL), imaging.Options{
		Model:         cfg.Vision.Model,
		MaxTokens:     cfg.Vision.MaxTokens,
		MaxImageBytes: cfg.Vision.MaxImageBytes,
		Timeout:       timeout,
	})

	color.Cyan("分析图片 %s (模型 %s)", args[0], cfg.Vision.Model)
	start := time.Now()
	analysis, err := svc.Analyze(cmd.Context(), imaging.Input{Image: dataURL, FileName: filepath.Base(args[0])})
	if err != nil {
		return err
	}
	color.Green("完成，用时 %s", time.Since(start).Round(time.Millisecond))
	return printJSON(analysis)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadModels()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}
	if !cfg.AI.Enabled() {
		return errors.New("Ark 凭证未配置，无法生成报告")
	}

	selected, ok := doctor.NewMemoryStore(doctor.Seed()).FindByID(doctorID)
	if !ok {
		return fmt.Errorf("未知的医生 ID: %d", doctorID)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("读取通话记录失败: %w", err)
	}
	var transcript model.Transcript
	if err := json.Unmarshal(raw, &transcript); err != nil {
		return fmt.Errorf("解析通话记录失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return err
	}
	generator, err := report.NewLLMGenerator(ctx, chatModel)
	if err != nil {
		return err
	}

	color.Cyan("生成报告: %s, %d 条发言", selected.Specialist, len(transcript))
	start := time.Now()
	result, err := generator.Generate(ctx, report.Request{
		Session: model.Session{
			SessionID:      fmt.Sprintf("manual-%d", time.Now().UnixNano()),
			CreatedBy:      "consulttester",
			Notes:          notes,
			SelectedDoctor: selected,
			CreatedOn:      time.Now().UTC(),
		},
		Transcript: transcript,
	})
	if err != nil {
		return err
	}
	color.Green("完成，用时 %s", time.Since(start).Round(time.Millisecond))
	return printJSON(result)
}

// readDataURL 将本地图片编码为 base64 data URL。
func readDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取图片失败: %w", err)
	}
	mediaType := http.DetectContentType(data)
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
