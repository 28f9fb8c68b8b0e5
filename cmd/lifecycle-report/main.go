// Command lifecycle-report builds lifecycle milestone reports from install
// base workbooks without the web server.
//
//	lifecycle-report file --input base.xlsx --start 2024-01-01 --end 2024-12-31 \
//	    --target "Last Date of Support" --file-type "single customer"
//	lifecycle-report folder --dir inventories --out-dir reports --zip reports.zip ...
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
