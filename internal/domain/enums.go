package domain

// TimeOfDay buckets the wall clock into coarse listening periods.
type TimeOfDay string

const (
	TimeDawn      TimeOfDay = "dawn"
	TimeMorning   TimeOfDay = "morning"
	TimeMidday    TimeOfDay = "midday"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// IsDaytime reports whether t falls within regular working daylight hours.
func (t TimeOfDay) IsDaytime() bool {
	switch t {
	case TimeMorning, TimeMidday, TimeAfternoon:
		return true
	case TimeDawn, TimeEvening, TimeNight:
		return false
	}
	return false
}

// Season uses the northern-hemisphere calendar convention.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// WeatherCondition is the categorical weather used by the rule tables.
type WeatherCondition string

const (
	WeatherClear  WeatherCondition = "clear"
	WeatherCloudy WeatherCondition = "cloudy"
	WeatherRainy  WeatherCondition = "rainy"
	WeatherStormy WeatherCondition = "stormy"
	WeatherSnowy  WeatherCondition = "snowy"
	WeatherFoggy  WeatherCondition = "foggy"
	WeatherWindy  WeatherCondition = "windy"
)

// Severity grades a condition from 0 (benign) to 3 (hazardous).
func (w WeatherCondition) Severity() int {
	switch w {
	case WeatherClear, WeatherCloudy:
		return 0
	case WeatherWindy, WeatherFoggy:
		return 1
	case WeatherRainy, WeatherSnowy:
		return 2
	case WeatherStormy:
		return 3
	}
	return 0
}

// EnvironmentType classifies the surroundings of a coordinate.
type EnvironmentType string

const (
	EnvironmentUrban    EnvironmentType = "urban"
	EnvironmentSuburban EnvironmentType = "suburban"
	EnvironmentRural    EnvironmentType = "rural"
	EnvironmentForest   EnvironmentType = "forest"
	EnvironmentCoastal  EnvironmentType = "coastal"
	EnvironmentMountain EnvironmentType = "mountain"
	EnvironmentPark     EnvironmentType = "park"
)

// IsNatural reports whether the environment is predominantly outdoors/nature.
func (e EnvironmentType) IsNatural() bool {
	switch e {
	case EnvironmentForest, EnvironmentCoastal, EnvironmentMountain, EnvironmentPark, EnvironmentRural:
		return true
	case EnvironmentUrban, EnvironmentSuburban:
		return false
	}
	return false
}

// MovementMode is supplied by the external motion detector.
type MovementMode string

const (
	MovementDriving    MovementMode = "driving"
	MovementCycling    MovementMode = "cycling"
	MovementWalking    MovementMode = "walking"
	MovementStationary MovementMode = "stationary"
)

// Valid reports whether m is one of the known modes.
func (m MovementMode) Valid() bool {
	switch m {
	case MovementDriving, MovementCycling, MovementWalking, MovementStationary:
		return true
	}
	return false
}

// SpeedTrend describes how the average speed is changing.
type SpeedTrend string

const (
	TrendAccelerating SpeedTrend = "accelerating"
	TrendDecelerating SpeedTrend = "decelerating"
	TrendStable       SpeedTrend = "stable"
)

// ActivityContext is the inferred activity label.
type ActivityContext string

const (
	ActivityCommuting   ActivityContext = "commuting"
	ActivityLeisure     ActivityContext = "leisure"
	ActivityExercise    ActivityContext = "exercise"
	ActivitySightseeing ActivityContext = "sightseeing"
	ActivityShopping    ActivityContext = "shopping"
	ActivityWork        ActivityContext = "work"
	ActivityUnknown     ActivityContext = "unknown"
)

// AvailableTime estimates how long the user can engage.
type AvailableTime string

const (
	TimeShort  AvailableTime = "short"
	TimeMedium AvailableTime = "medium"
	TimeLong   AvailableTime = "long"
)

// AttentionLevel estimates how much attention the user can spare.
type AttentionLevel string

const (
	AttentionLow    AttentionLevel = "low"
	AttentionMedium AttentionLevel = "medium"
	AttentionHigh   AttentionLevel = "high"
)

// ContentPreference is the derived appetite for depth.
type ContentPreference string

const (
	PreferenceBrief     ContentPreference = "brief"
	PreferenceDetailed  ContentPreference = "detailed"
	PreferenceImmersive ContentPreference = "immersive"
)

// Level is a generic three-step scale (density, noise, safety, interaction).
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ContentType classifies stories in the library.
type ContentType string

const (
	ContentHistorical    ContentType = "historical"
	ContentNatural       ContentType = "natural"
	ContentCultural      ContentType = "cultural"
	ContentPersonal      ContentType = "personal"
	ContentInformational ContentType = "informational"
)

// Valid reports whether c is a known content type.
func (c ContentType) Valid() bool {
	switch c {
	case ContentHistorical, ContentNatural, ContentCultural, ContentPersonal, ContentInformational:
		return true
	}
	return false
}

// ContentFormat is the delivery format of an adaptation.
type ContentFormat string

const (
	FormatAudio       ContentFormat = "audio"
	FormatText        ContentFormat = "text"
	FormatVisual      ContentFormat = "visual"
	FormatInteractive ContentFormat = "interactive"
)

// LengthCategory buckets adapted content by size.
type LengthCategory string

const (
	LengthMicro    LengthCategory = "micro"
	LengthShort    LengthCategory = "short"
	LengthMedium   LengthCategory = "medium"
	LengthLong     LengthCategory = "long"
	LengthExtended LengthCategory = "extended"
)

// ComplexityCategory buckets adapted content by language complexity.
type ComplexityCategory string

const (
	ComplexitySimple   ComplexityCategory = "simple"
	ComplexityModerate ComplexityCategory = "moderate"
	ComplexityComplex  ComplexityCategory = "complex"
	ComplexityExpert   ComplexityCategory = "expert"
)

// InteractionType is the kind of prompt injected into delivery.
type InteractionType string

const (
	InteractionQuestion   InteractionType = "question"
	InteractionChoice     InteractionType = "choice"
	InteractionPause      InteractionType = "pause"
	InteractionReflection InteractionType = "reflection"
	InteractionAction     InteractionType = "action"
)

// DeliveryTiming tells the consumer when to surface a recommendation.
type DeliveryTiming string

const (
	DeliveryImmediate     DeliveryTiming = "immediate"
	DeliveryQueued        DeliveryTiming = "queued"
	DeliveryScheduled     DeliveryTiming = "scheduled"
	DeliveryOpportunistic DeliveryTiming = "opportunistic"
)

// Priority orders suggestions and recommendations.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of p; lower ranks sort first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// POIType classifies nearby points of interest.
type POIType string

const (
	POIHistorical  POIType = "historical"
	POICultural    POIType = "cultural"
	POINatural     POIType = "natural"
	POIPark        POIType = "park"
	POIWaterfront  POIType = "waterfront"
	POICommercial  POIType = "commercial"
	POITransit     POIType = "transit"
	POIResidential POIType = "residential"
)

// AdaptationAspect names what a recommendation wants to change.
type AdaptationAspect string

const (
	AspectVolume     AdaptationAspect = "volume"
	AspectSpeed      AdaptationAspect = "speed"
	AspectDuration   AdaptationAspect = "duration"
	AspectComplexity AdaptationAspect = "complexity"
)

// Direction is the sign of a recommended change.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionMaintain Direction = "maintain"
)
