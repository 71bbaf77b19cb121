package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/logger"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/storage"
)

// cliUser 命令行生成的记录归属的用户名
const cliUser = "cli"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	profilePath := flag.String("profile", "configs/profile.yaml", "用户画像文件路径")
	outPath := flag.String("out", "output/strategy.html", "HTML 报告输出路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动理财顾问...")

	// 3. 读取并校验画像
	profile, err := loadProfile(*profilePath)
	if err != nil {
		logger.Log.Fatalf("用户画像无效: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 4. 初始化引擎并生成策略
	eng, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}
	res := eng.GenerateStrategy(ctx, profile, nil)

	// 配置了数据库时保存分析记录
	if dsn := cfg.DB.DSN(); dsn != "" {
		saveHistory(ctx, dsn, res)
	} else {
		logger.Log.Info("未配置数据库信息，跳过历史记录保存")
	}

	// 5. 生成 HTML
	data := ReportData{
		Date:        time.Now().Format("2006-01-02"),
		Profile:     profile,
		Strategy:    *res.Strategy,
		Source:      string(res.Source),
		Diagnostics: res.Diagnostics,
	}
	if err := writeReport(*outPath, data); err != nil {
		logger.Log.Fatalf("生成 HTML 失败: %v", err)
	}

	fmt.Printf("source=%s report=%s\n", res.Source, *outPath)
	logger.Log.Infof("✅ 理财策略报告生成完毕: %s", *outPath)
}

func saveHistory(ctx context.Context, dsn string, res normalize.Result) {
	store, err := storage.NewStorage(ctx, dsn)
	if err != nil {
		logger.Log.Errorf("无法连接数据库: %v. 将仅生成 HTML 文件。", err)
		return
	}
	defer store.Close()

	a, err := storage.NewAnalysis(cliUser, res)
	if err == nil {
		err = store.SaveAnalyses(ctx, a)
	}
	if err != nil {
		logger.Log.Errorf("保存分析记录失败: %v", err)
		return
	}
	logger.Log.Infof("分析记录已保存到数据库: %s", a.ID)
}

func loadProfile(path string) (model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p model.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return model.NewProfile(p)
}

func writeReport(path string, data ReportData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return renderReport(f, data)
}
