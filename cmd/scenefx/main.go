package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"scenefx/internal/config"
	"scenefx/internal/utils"
)

func init() {
	// GL calls must stay on the thread that created the context.
	runtime.LockOSThread()
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	configPath := flag.String("config", "scenefx.toml", "Path to the TOML settings file")
	pkgPath := flag.String("pkg", "", "Path to a .pkg archive searched before the asset directories")
	imagePath := flag.String("image", "", "Asset name of the image shown as the scene color")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	checkFlag := flag.Bool("check", false, "Build every configured program, then exit")
	watchFlag := flag.Bool("watch", false, "Reload shaders and textures when asset files change")
	var assetDirs stringList
	flag.Var(&assetDirs, "assets", "Asset directory (repeatable, searched in order)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			utils.Error("Failed to load config: %v", err)
			os.Exit(1)
		}
		utils.Debug("Config: %s not found, using defaults", *configPath)
		cfg = config.Default()
	}

	if len(assetDirs) > 0 {
		cfg.Assets = assetDirs
	}
	if *pkgPath != "" {
		cfg.Package = *pkgPath
	}
	utils.CurrentLevel = utils.ParseLogLevel(cfg.LogLevel)
	if *debugFlag {
		utils.DebugMode = true
		utils.CurrentLevel = utils.LevelDebug
	}
	if *checkFlag {
		cfg.Window.Hidden = true
	}

	utils.Info("--- scenefx start ---")

	assets, err := openAssets(cfg)
	if err != nil {
		utils.Error("Failed to open assets: %v", err)
		os.Exit(1)
	}

	window, err := NewWindow(cfg)
	if err != nil {
		utils.Error("Failed to open window: %v", err)
		os.Exit(1)
	}
	defer window.Close()

	pipeline, err := NewPipeline(window.device, assets, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		window.Close()
		os.Exit(1)
	}
	defer pipeline.Close()

	if *checkFlag {
		utils.Info("Check: %d programs built", len(cfg.Programs))
		fmt.Println("ok")
		return
	}

	if *watchFlag {
		watcher, err := utils.WatchDirs(cfg.Assets...)
		if err != nil {
			utils.Error("Failed to watch assets: %v", err)
		} else {
			defer watcher.Close()
			window.changes = watcher.Changes
		}
	}

	if err := window.Run(pipeline, *imagePath); err != nil {
		utils.Error("Preview failed: %v", err)
		pipeline.Close()
		window.Close()
		os.Exit(1)
	}
}
