// Package whisper wraps the transcription engines behind one interface.
//
// Two engines are supported: WhisperX invoked through uvx (the default,
// better timestamps, needs a Python toolchain on demand) and whisper.cpp's
// whisper-cli binary (no Python, configure a ggml model path). The engine is
// chosen once from configuration; downstream stages only see the Engine
// interface and the shared transcript types.
//
// The package also owns audio preparation: AudioExtractor converts
// downloaded episode audio to the 16 kHz mono WAV both engines and the
// diarization sidecar expect.
//
// Failed tool invocations capture stderr to <log_dir>/tool/ for diagnosis,
// since model runs are long and rerunning them to reproduce a crash is
// expensive.
package whisper
