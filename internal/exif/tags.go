package exif

import "strconv"

// Tag IDs the extractor reads directly.
const (
	tagExifOffset    uint16 = 0x8769
	tagGPSInfo       uint16 = 0x8825
	tagInteropOffset uint16 = 0xA005
	gpsLatitudeRef   uint16 = 0x0001
	gpsLatitude      uint16 = 0x0002
	gpsLongitudeRef  uint16 = 0x0003
	gpsLongitude     uint16 = 0x0004
	gpsAltitudeRef   uint16 = 0x0005
	gpsAltitude      uint16 = 0x0006
	gpsInfoTableName        = "GPSInfo"
)

// exifTagNames is the main-namespace dictionary (IFD0 and the Exif sub-IFD
// share one ID space).
var exifTagNames = map[uint16]string{
	0x00FE: "NewSubfileType",
	0x0100: "ImageWidth",
	0x0101: "ImageLength",
	0x0102: "BitsPerSample",
	0x0103: "Compression",
	0x0106: "PhotometricInterpretation",
	0x010E: "ImageDescription",
	0x010F: "Make",
	0x0110: "Model",
	0x0111: "StripOffsets",
	0x0112: "Orientation",
	0x0115: "SamplesPerPixel",
	0x0116: "RowsPerStrip",
	0x0117: "StripByteCounts",
	0x011A: "XResolution",
	0x011B: "YResolution",
	0x011C: "PlanarConfiguration",
	0x0128: "ResolutionUnit",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013B: "Artist",
	0x013E: "WhitePoint",
	0x013F: "PrimaryChromaticities",
	0x0201: "JpegIFOffset",
	0x0202: "JpegIFByteCount",
	0x0211: "YCbCrCoefficients",
	0x0212: "YCbCrSubSampling",
	0x0213: "YCbCrPositioning",
	0x0214: "ReferenceBlackWhite",
	0x8298: "Copyright",
	0x829A: "ExposureTime",
	0x829D: "FNumber",
	0x8769: "ExifOffset",
	0x8822: "ExposureProgram",
	0x8824: "SpectralSensitivity",
	0x8825: gpsInfoTableName,
	0x8827: "ISOSpeedRatings",
	0x8830: "SensitivityType",
	0x9000: "ExifVersion",
	0x9003: "DateTimeOriginal",
	0x9004: "DateTimeDigitized",
	0x9010: "OffsetTime",
	0x9011: "OffsetTimeOriginal",
	0x9012: "OffsetTimeDigitized",
	0x9101: "ComponentsConfiguration",
	0x9102: "CompressedBitsPerPixel",
	0x9201: "ShutterSpeedValue",
	0x9202: "ApertureValue",
	0x9203: "BrightnessValue",
	0x9204: "ExposureBiasValue",
	0x9205: "MaxApertureValue",
	0x9206: "SubjectDistance",
	0x9207: "MeteringMode",
	0x9208: "LightSource",
	0x9209: "Flash",
	0x920A: "FocalLength",
	0x9214: "SubjectArea",
	0x927C: "MakerNote",
	0x9286: "UserComment",
	0x9290: "SubsecTime",
	0x9291: "SubsecTimeOriginal",
	0x9292: "SubsecTimeDigitized",
	0xA000: "FlashPixVersion",
	0xA001: "ColorSpace",
	0xA002: "ExifImageWidth",
	0xA003: "ExifImageHeight",
	0xA004: "RelatedSoundFile",
	0xA005: "ExifInteroperabilityOffset",
	0xA20E: "FocalPlaneXResolution",
	0xA20F: "FocalPlaneYResolution",
	0xA210: "FocalPlaneResolutionUnit",
	0xA215: "ExposureIndex",
	0xA217: "SensingMethod",
	0xA300: "FileSource",
	0xA301: "SceneType",
	0xA302: "CFAPattern",
	0xA401: "CustomRendered",
	0xA402: "ExposureMode",
	0xA403: "WhiteBalance",
	0xA404: "DigitalZoomRatio",
	0xA405: "FocalLengthIn35mmFilm",
	0xA406: "SceneCaptureType",
	0xA407: "GainControl",
	0xA408: "Contrast",
	0xA409: "Saturation",
	0xA40A: "Sharpness",
	0xA40C: "SubjectDistanceRange",
	0xA420: "ImageUniqueID",
	0xA430: "CameraOwnerName",
	0xA431: "BodySerialNumber",
	0xA432: "LensSpecification",
	0xA433: "LensMake",
	0xA434: "LensModel",
	0xA435: "LensSerialNumber",
}

// gpsTagNames is the GPS-namespace dictionary. IDs overlap with the main
// namespace, so the two are never merged.
var gpsTagNames = map[uint16]string{
	0x0000: "GPSVersionID",
	0x0001: "GPSLatitudeRef",
	0x0002: "GPSLatitude",
	0x0003: "GPSLongitudeRef",
	0x0004: "GPSLongitude",
	0x0005: "GPSAltitudeRef",
	0x0006: "GPSAltitude",
	0x0007: "GPSTimeStamp",
	0x0008: "GPSSatellites",
	0x0009: "GPSStatus",
	0x000A: "GPSMeasureMode",
	0x000B: "GPSDOP",
	0x000C: "GPSSpeedRef",
	0x000D: "GPSSpeed",
	0x000E: "GPSTrackRef",
	0x000F: "GPSTrack",
	0x0010: "GPSImgDirectionRef",
	0x0011: "GPSImgDirection",
	0x0012: "GPSMapDatum",
	0x0013: "GPSDestLatitudeRef",
	0x0014: "GPSDestLatitude",
	0x0015: "GPSDestLongitudeRef",
	0x0016: "GPSDestLongitude",
	0x0017: "GPSDestBearingRef",
	0x0018: "GPSDestBearing",
	0x0019: "GPSDestDistanceRef",
	0x001A: "GPSDestDistance",
	0x001B: "GPSProcessingMethod",
	0x001C: "GPSAreaInformation",
	0x001D: "GPSDateStamp",
	0x001E: "GPSDifferential",
	0x001F: "GPSHPositioningError",
}

// resolveName maps an ID through dict, keeping unknown IDs as their decimal
// identifier.
func resolveName(dict map[uint16]string, id uint16) string {
	if name, ok := dict[id]; ok {
		return name
	}
	return strconv.Itoa(int(id))
}

// resolveTable turns a raw ID-keyed directory into a named Table. Nested
// values are kept as they are; they are resolved on demand.
func resolveTable(raw map[uint16]Value) Table {
	t := make(Table, len(raw))
	for id, v := range raw {
		t[resolveName(exifTagNames, id)] = v
	}
	return t
}
