package whisper

import "os"

// ResizeOptions configures Resize (§4.7's `new_path | in-place`).
type ResizeOptions struct {
	Archives  []ArchiveInfo
	Options   Options
	Aggregate bool // re-consolidate source archives instead of a 1:1 copy
	InPlace   bool // rename the result over src.Path() when done
	NoBackup  bool // with InPlace, delete the .bak file on success

	// NewPath names the result file when InPlace is false. Required in
	// that case; ignored when InPlace is true, since the result always
	// ends up renamed over src.Path().
	NewPath string
}

// Resize builds a new file with a different archive schema from src's
// current contents. With Aggregate=false each source archive is copied
// over its full retained horizon; with Aggregate=true source archives
// are walked fine-to-coarse, and the earliest instant already covered by
// a finer archive becomes the next (coarser) archive's upper bound, so
// the same instant is never double-counted. With InPlace, the original
// is renamed to a `.bak` file and the new file takes its path, restoring
// the backup if the final rename fails (§4.7).
func Resize(src *Whisper, opts ResizeOptions, now uint32) (*Whisper, error) {
	if !opts.InPlace && opts.NewPath == "" {
		return nil, newKindError(ErrInvalidFormat, "resize: NewPath is required when InPlace is false")
	}

	tmpPath := opts.NewPath
	if opts.InPlace {
		tmpPath = src.path + ".resize.tmp"
	}

	newFile, err := Create(tmpPath, opts.Archives, opts.Options)
	if err != nil {
		return nil, err
	}

	if !opts.Aggregate {
		for _, a := range src.header.Archives {
			from := uint32(0)
			if now > a.Retention() {
				from = now - a.Retention()
			}
			if err := copyArchive(src, newFile, a.SecondsPerPoint, from, now, now); err != nil {
				newFile.Close()
				os.Remove(tmpPath)
				return nil, err
			}
		}
	} else {
		until := now
		for _, a := range src.header.Archives {
			from := uint32(0)
			if now > a.Retention() {
				from = now - a.Retention()
			}
			if from >= until {
				until = from
				continue
			}
			if err := copyArchive(src, newFile, a.SecondsPerPoint, from, until, now); err != nil {
				newFile.Close()
				os.Remove(tmpPath)
				return nil, err
			}
			until = from
		}
	}

	if !opts.InPlace {
		return newFile, nil
	}

	finalPath := src.path
	backupPath := finalPath + ".bak"

	if err := newFile.Close(); err != nil {
		return nil, err
	}
	if err := src.Close(); err != nil {
		return nil, err
	}

	if err := os.Rename(finalPath, backupPath); err != nil {
		return nil, wrapIO(err, "resize backup", finalPath)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Rename(backupPath, finalPath)
		return nil, wrapIO(err, "resize install", finalPath)
	}
	if opts.NoBackup {
		os.Remove(backupPath)
	}

	return Open(finalPath)
}

func copyArchive(src, dst *Whisper, step, from, until, now uint32) error {
	data, err := src.Fetch(step, Interval{From: from, Until: until}, now)
	if err != nil {
		return err
	}
	points := samplesToPoints(data)
	if len(points) == 0 {
		return nil
	}
	return dst.UpdateMany(points, now)
}
