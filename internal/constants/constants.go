package constants

const ElectronCharge = 1.602176634e-19        // C
const AtomicMassUnit float64 = 1.66053906892e-27 // [kg]
const Quantile95 = 1.96
