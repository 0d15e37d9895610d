package main

import (
	"context"
	"fmt"
	"log"
	_runtime "runtime"

	"ptyterm/backend"
	"ptyterm/frontend"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

var version = "0.0.0"

const appName = "ptyterm"

func main() {
	isMacOS := _runtime.GOOS == "darwin"
	// 创建一个 app 的实例
	app := backend.NewApp(IsDebug, isMacOS)

	// 创建应用主菜单 (跨平台)
	appMenu := menu.NewMenu()

	// macOS 上添加标准的 App/Edit/Window 菜单
	if isMacOS {
		appMenu.Append(menu.AppMenu())
		appMenu.Append(menu.EditMenu())
		appMenu.Append(menu.WindowMenu())
	}
	app.Menu(appMenu)

	err := wails.Run(&options.App{
		Title:     appName,
		Width:     1024,
		Height:    640,
		Frameless: false,
		Menu:      appMenu,

		// 终端有自己的右键菜单
		EnableDefaultContextMenu: false,
		AssetServer: &assetserver.Options{
			Assets: frontend.Dist(),
		},

		BackgroundColour: &options.RGBA{R: 37, G: 37, B: 37, A: 255},
		OnStartup: func(ctx context.Context) {
			app.Startup(ctx)
		},
		OnShutdown: func(ctx context.Context) {
			app.Shutdown(ctx)
		},
		OnBeforeClose: app.OnBeforeClose,

		HideWindowOnClose: false,
		Bind: []any{
			app,
		},
		Mac: &mac.Options{
			TitleBar: mac.TitleBarDefault(),
			About: &mac.AboutInfo{
				Title:   fmt.Sprintf("%s %s", appName, version),
				Message: "A shell in a window.\n\nCopyright © 2025",
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
