package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/kikiluvv/regionswap/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	info.FilePath = filePath
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("%s has no video stream", filePath)
	}
	return info, nil
}

func parseProbe(output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	var nbFrames string
	seenVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if seenVideo {
				continue
			}
			seenVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			info.FPS = util.ParseFrameRate(stream.RFrameRate)
			if info.FPS <= 0 {
				info.FPS = util.ParseFrameRate(stream.AvgFrameRate)
			}
			nbFrames = stream.NbFrames
			// stream duration is more precise than the container's
			if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil && dur > 0 {
				info.Duration = time.Duration(dur * float64(time.Second))
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	info.Frames = frameCount(nbFrames, info.Duration, info.FPS)
	return info, nil
}

// frameCount prefers the container's nb_frames and falls back to
// duration*fps. The result may over-report; decoding corrects it.
func frameCount(nbFrames string, dur time.Duration, fps float64) int {
	if n, err := strconv.Atoi(nbFrames); err == nil && n > 0 {
		return n
	}
	if fps <= 0 || dur <= 0 {
		return 0
	}
	return int(math.Round(dur.Seconds() * fps))
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}
