package model

// ArchiveKind is the container format detected by content sniffing.
type ArchiveKind int

const (
	ArchiveUnsupported ArchiveKind = iota
	ArchiveZip
	ArchiveTar
)

func (k ArchiveKind) String() string {
	switch k {
	case ArchiveZip:
		return "zip"
	case ArchiveTar:
		return "tar"
	default:
		return "unsupported"
	}
}

// Compression is the stream compression wrapped around a tar container.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionXz    Compression = "xz"
	CompressionZstd  Compression = "zstd"
	CompressionLz4   Compression = "lz4"
)

// ArchiveArtifact is a file on disk classified by its content.
type ArchiveArtifact struct {
	Path        string
	Kind        ArchiveKind
	Compression Compression
}
