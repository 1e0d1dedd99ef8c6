package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := make([]float32, 1600) // 100ms при 16kHz
	data := EncodeWAV(samples, SampleRate, Channels)

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("неверный размер WAV: %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("неверный RIFF заголовок: %q %q", data[0:4], data[8:12])
	}
	if string(data[12:16]) != "fmt " {
		t.Fatalf("не найден fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		t.Fatalf("ожидался PCM (1), получено %d", format)
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != Channels {
		t.Fatalf("ожидался %d канал, получено %d", Channels, ch)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != SampleRate {
		t.Fatalf("ожидалась частота %d, получено %d", SampleRate, rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("ожидалось 16 бит, получено %d", bits)
	}
	if string(data[36:40]) != "data" {
		t.Fatalf("не найден data chunk")
	}
	if dataLen := binary.LittleEndian.Uint32(data[40:44]); dataLen != uint32(len(samples)*2) {
		t.Fatalf("неверная длина data: %d", dataLen)
	}
}

func TestFloatToPCM16Saturation(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2.5, 32767},   // насыщение сверху
		{-2.5, -32767}, // насыщение снизу
		{0.5, 16383},
	}

	for _, tc := range cases {
		if got := floatToPCM16(tc.in); got != tc.want {
			t.Errorf("floatToPCM16(%v) = %d, ожидалось %d", tc.in, got, tc.want)
		}
	}
}
