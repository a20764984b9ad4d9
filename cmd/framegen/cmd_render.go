package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/frame"
	"github.com/peicooks/framegen/pkg/photo"
	"github.com/peicooks/framegen/pkg/session"
)

var (
	inputPath  string
	styleID    string
	outputPath string
	renderAll  bool
	previewOut string
	qrOut      string
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the frame styles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
		for _, s := range frame.All() {
			def := ""
			if s.ID == frame.Default().ID {
				def = " (default)"
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\n", s.ID, def, s.DisplayName, s.Background)
		}
		return tw.Flush()
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a framed photo to PNG",
	Long: `Loads a photo (5 MB max), composes it into the chosen style and writes
the PNG. With --all every style is rendered, one file per style.

Example:
  framegen render -i me.jpg -s frame2 -o me-framed.png`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share a framed photo, or copy the page link",
	Long: `The terminal has no native share sheet, so this copies the share link
to the clipboard, the same fallback the web page uses. --qr also writes a QR
code of the link.`,
	Args: cobra.NoArgs,
	RunE: runShare,
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, shareCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "Photo to frame (required)")
		c.Flags().StringVarP(&styleID, "style", "s", frame.Default().ID, "Frame style ID")
		_ = c.MarkFlagRequired("input")
	}
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output PNG (default: configured download filename)")
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "Render every style")
	renderCmd.Flags().StringVar(&previewOut, "preview", "", "Also write the upload thumbnail here")
	shareCmd.Flags().StringVar(&qrOut, "qr", "", "Write a QR code of the share link here")
}

// openSession wires a session from config and loads the photo into it.
func openSession() (*session.Session, error) {
	comp, err := compositor.New(cfg.Render.FontPath)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	loader := photo.NewLoader(cfg.Upload.MaxBytes, logger)
	sess := session.New(comp, loader, logger)

	if err := sess.SelectStyle(styleID); err != nil {
		return nil, err
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat photo: %w", err)
	}

	if err := sess.Load(filepath.Base(inputPath), f, info.Size()); err != nil {
		return nil, err
	}
	return sess, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	exp := export.New(cfg.ExportOptions(), logger)

	out := outputPath
	if out == "" {
		out = exp.Options().Filename
	}

	if previewOut != "" {
		data, err := export.EncodePNG(sess.Photo().Preview)
		if err != nil {
			return err
		}
		if err := export.WriteFile(previewOut, export.Asset{Data: data}); err != nil {
			return err
		}
	}

	if renderAll {
		imgs, err := sess.Previews(context.Background())
		if err != nil {
			return err
		}
		ext := filepath.Ext(out)
		base := strings.TrimSuffix(out, ext)
		for i, st := range frame.All() {
			a, err := exp.Download(imgs[i])
			if err != nil {
				return err
			}
			path := fmt.Sprintf("%s-%s%s", base, st.ID, ext)
			if err := export.WriteFile(path, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", path)
		}
		return nil
	}

	img, err := sess.Frame()
	if err != nil {
		return err
	}
	a, err := exp.Download(img)
	if err != nil {
		return err
	}
	if err := export.WriteFile(out, a); err != nil {
		return err
	}
	logger.Info("frame written", zap.String("path", out), zap.String("style", sess.Style().ID))
	fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", out)
	return nil
}

// systemClipboard adapts atotto/clipboard to export.Clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteText(s string) error { return clipboard.WriteAll(s) }

func runShare(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	img, err := sess.Frame()
	if err != nil {
		return err
	}

	exp := export.New(cfg.ExportOptions(), logger)
	res, err := exp.Share(cmd.Context(), img, nil, systemClipboard{})
	if err != nil {
		return err
	}

	if qrOut != "" {
		a, err := exp.LinkQR(256)
		if err != nil {
			return err
		}
		if err := export.WriteFile(qrOut, a); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res.Message, res.Link)
	return nil
}
