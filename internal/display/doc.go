// Package display formats pairchat messages for the terminal.
//
// FormatDate renders timestamps as DD/MM/YYYY HH:mm. Renderer prints the
// new messages of each conversation snapshot, highlighting the viewer's own
// messages, using fatih/color. The same Renderer prints the post feed and
// comment threads from their snapshots.
package display
