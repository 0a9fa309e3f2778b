package ui

import (
	"github.com/fatih/color"
)

var Yellow = color.New(color.FgYellow).SprintFunc()
var Grey = color.New(color.FgHiBlack).SprintFunc()
var Bold = color.New(color.Bold).SprintFunc()
var Minus = color.New(color.FgHiRed).SprintFunc()("-")
