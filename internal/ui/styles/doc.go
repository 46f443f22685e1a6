// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ragworks TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The detection can be pinned with the ui.theme setting.

# Color System (colors.go)

  - Purple - Primary accent, assistant messages, focus
  - Cyan - Brand color, user highlights, key hints
  - Emerald - Success messages
  - Amber - Notices and warnings
  - Rose - Errors

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	fmt.Println(theme.HeaderBrand.Render("RAGworks"))

# Spinners (spinner.go)

ASCII spinner frames for in-flight requests, usable with bubbles/spinner.
*/
package styles
