package banner

import (
	"echoburst/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
          _           _                    _   
  ___ ___| |__   ___ | |__  _   _ _ __ ___| |_ 
 / _ \ __| '_ \ / _ \| '_ \| | | | '__/ __| __|
|  __/ (__| | | | (_) | |_) | |_| | |  \__ \ |_ 
 \___|\___|_| |_|\___/|_.__/ \__,_|_|  |___/\__|`

	return "\n" + style.Render(ascii) + "\n"
}
