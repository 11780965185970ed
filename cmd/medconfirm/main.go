// Command medconfirm は服薬スケジュールと写真による服薬確認のAPIサーバーおよびワーカー。
//
// 使い方:
//
//	medconfirm [serve|worker|migrate [down]|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/medconfirm/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "medconfirm: %v\n", err)
		os.Exit(1)
	}
}
