package cli

import (
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/gallery"
)

// fileCommand groups the per-file API operations.
func (c *CLI) fileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Delete, like and comment on gallery files",
	}

	cmd.AddCommand(c.fileDeleteCommand())
	cmd.AddCommand(c.fileLikeCommand())
	cmd.AddCommand(c.fileCommentCommand())
	cmd.AddCommand(c.fileInteractionsCommand())
	cmd.AddCommand(c.filePresignCommand())

	return cmd
}

func parseFileID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", s)
	}
	return id, nil
}

func (c *CLI) fileDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			client, err := c.newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if err := client.DeleteFile(cmd.Context(), id); err != nil {
				return err
			}
			c.ui().success("Deleted file %d", id)
			return nil
		},
	}
}

func (c *CLI) fileLikeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "like <file-id>",
		Short: "Like a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			client, err := c.newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if _, err := client.Like(cmd.Context(), id); err != nil {
				return err
			}
			c.ui().success("Liked file %d", id)
			return nil
		},
	}
}

func (c *CLI) fileCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <file-id> <text...>",
		Short: "Comment on a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			client, err := c.newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if _, err := client.Comment(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			c.ui().success("Commented on file %d", id)
			return nil
		},
	}
}

func (c *CLI) fileInteractionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interactions <file-id>",
		Short: "Show likes and comments of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			client, err := c.newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			in, err := client.Interactions(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.ui().keyValue("Likes", StyleNumber.Render(strconv.Itoa(in.TotalLikes)))
			for _, cm := range in.Comments {
				c.ui().keyValue("@"+cm.Username, cm.Comment)
			}
			return nil
		},
	}
}

func (c *CLI) filePresignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presign <path>...",
		Short: "Request pre-signed upload URLs for local files",
		Long: `Request pre-signed upload URLs for local image and video files.

Each file gets a unique object key of the form <uuid>-<name>, so uploads never
overwrite each other. Files that are neither images nor videos are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reqs []gallery.UploadRequest
			for _, p := range args {
				ft := fileTypeOf(p)
				if !ft.IsMedia() {
					c.ui().warning("Skipping %s (not an image or video)", p)
					continue
				}
				key, err := gallery.UniqueObjectKey(p)
				if err != nil {
					return err
				}
				reqs = append(reqs, gallery.UploadRequest{ObjectKey: key, FileType: ft})
			}

			client, err := c.newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			urls, err := client.PresignUploads(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			for _, u := range urls {
				c.ui().keyValue("Key", StyleHighlight.Render(u.UniqueObjectKey))
				c.ui().detail("%s", u.URL)
			}
			return nil
		},
	}
}

// videoExts covers extensions the system MIME table may not know.
var videoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".m4v": true, ".avi": true}

// fileTypeOf classifies a path by its extension.
func fileTypeOf(path string) gallery.FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if videoExts[ext] {
		return gallery.FileTypeVideo
	}
	mt := mime.TypeByExtension(ext)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return gallery.FileTypeImage
	case strings.HasPrefix(mt, "video/"):
		return gallery.FileTypeVideo
	default:
		return gallery.FileTypeOther
	}
}
