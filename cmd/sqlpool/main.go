package main

import (
	sqlpoolcmd "gfx.cafe/gfx/sqlpool/cmd"
)

func main() {
	sqlpoolcmd.Main()
}
