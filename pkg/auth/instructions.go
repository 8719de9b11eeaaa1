package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowLoginGuide explains the manual login step shown before the album list
// is read. The browser window stays open while the user signs in.
func ShowLoginGuide(w io.Writer, albumsURL string) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "ZONERAMA LOGIN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in to Zonerama in the browser window that just opened.")
	fmt.Fprintf(w, "2. Make sure your album list is visible (%s).\n", albumsURL)
	fmt.Fprintln(w, "3. Come back here and press Enter.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The login is remembered for the next run unless --no-remember is given.")
	fmt.Fprintln(w, "Use 'zonerama session clear' to forget it.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
