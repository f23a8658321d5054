package main

import (
	"github.com/zjregee/aip/internal/app"
)

func main() {
	app.Execute()
}
