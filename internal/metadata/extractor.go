// Package metadata fills song records from audio files: title and artist
// from embedded tags, duration from the container itself.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"

	"rubato/pkg/models"
)

// Extractor handles metadata extraction from audio files
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// ExtractFromFile reads tags and duration from an audio file and returns a
// partially filled song record. Missing tags degrade to the filename and
// "Unknown Artist" rather than failing; a song with a rough title beats no
// song. Duration failures are logged and left at zero.
func (e *Extractor) ExtractFromFile(filePath string) (models.Song, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open audio file")
		return models.Song{}, err
	}
	defer file.Close()

	duration, err := e.calculateDuration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	song := models.Song{
		AudioPath: filePath,
		Duration:  duration,
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to read tags, using filename")

		song.Title = name
		song.ArtistName = "Unknown Artist"
		return song, nil
	}

	song.Title = meta.Title()
	if song.Title == "" {
		song.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	song.ArtistName = meta.Artist()
	if song.ArtistName == "" {
		song.ArtistName = "Unknown Artist"
	}
	song.Album = meta.Album()

	e.logger.WithFields(logrus.Fields{
		"file_path":       filePath,
		"title":           song.Title,
		"artist":          song.ArtistName,
		"duration":        duration,
		"processing_time": time.Since(startTime),
	}).Debug("Successfully extracted metadata")

	return song, nil
}

// calculateDuration calculates the duration of an audio file in seconds
func (e *Extractor) calculateDuration(filePath string) (int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.mp3Duration(filePath)
	case ".flac":
		return e.flacDuration(filePath)
	case ".wav":
		return e.wavDuration(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(filePath))
	}
}

// mp3Duration sums decoded frame durations. Files where not a single frame
// decodes fall back to a 192 kbps size estimate.
func (e *Extractor) mp3Duration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		total   time.Duration
		frame   mp3.Frame
		skipped int
		frames  int
	)

	for {
		err := dec.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if frames == 0 {
				return estimateFromBitrate(path, 192000)
			}
			break // partial decode; use what we have
		}
		total += frame.Duration()
		frames++
	}

	return int(total.Seconds()), nil
}

// flacDuration reads sample count and rate from the STREAMINFO block.
func (e *Extractor) flacDuration(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}

	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}

	return int(float64(info.NSamples)/float64(info.SampleRate) + 0.5), nil
}

// wavDuration asks the wav decoder for the container duration.
func (e *Extractor) wavDuration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}

	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return int(d.Seconds() + 0.5), nil
}

// estimateFromBitrate guesses duration from file size, assuming a constant
// bitrate in bits per second.
func estimateFromBitrate(path string, bitrate int64) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / bitrate), nil
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetContentType returns the MIME type for an audio file
func (e *Extractor) GetContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
