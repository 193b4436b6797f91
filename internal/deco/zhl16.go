package deco

// zhl16 is the ZH-L16 nitrogen table: half-time (min), a (bar), b.
var zhl16 = [16][3]float64{
	{4, 1.2599, 0.5050},
	{8, 1.0000, 0.6514},
	{12.5, 0.8618, 0.7222},
	{18.5, 0.7562, 0.7725},
	{27, 0.6667, 0.8125},
	{38.3, 0.5933, 0.8434},
	{54.3, 0.5282, 0.8693},
	{77, 0.4701, 0.8910},
	{109, 0.4187, 0.9092},
	{146, 0.3798, 0.9222},
	{187, 0.3497, 0.9319},
	{239, 0.3223, 0.9403},
	{305, 0.2971, 0.9477},
	{390, 0.2737, 0.9544},
	{498, 0.2523, 0.9602},
	{635, 0.2327, 0.9653},
}

// NumCompartments is the number of tissue compartments in ZH-L16.
const NumCompartments = len(zhl16)
