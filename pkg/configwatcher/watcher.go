package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

const debounce = time.Second

// WatchConfig 监听配置文件变化，防抖后重新加载并回调，ctx 取消时退出
func WatchConfig(ctx context.Context, configFile string, reloader ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configFile)
	if err != nil {
		return err
	}

	// 监听目录，编辑器保存时常以重命名方式替换文件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// 防抖处理
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case <-timer.C:
			// 重新加载配置
			newCfg, err := config.LoadConfig(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("file", absPath))
			reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
